// Package traverse walks the directory tree ahead of dispatch, producing
// the candidate file list plus include/exclude counts. The walk is
// single-threaded, exhaustive and never revisits a directory; its order
// is unspecified.
package traverse

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/scandog/scandog/internal/interrupt"
	"github.com/scandog/scandog/internal/logger"
	"github.com/scandog/scandog/internal/pattern"
)

// Options configures exclusion and symlink behavior for one walk.
type Options struct {
	ExcludedFolders map[string]struct{}
	ExcludedFiles   map[string]struct{}
	ExcludePatterns []string
	FollowSymlinks  bool
}

// Result is the candidate list plus traversal counters. Excluded counts
// files skipped by name or pattern and symlink entries that were not
// followed; directory pruning contributes nothing since pruned contents
// are never visited.
type Result struct {
	Paths    []string
	Included int
	Excluded int
}

// Collect walks root and gathers candidate file paths. Permission errors
// below the root are logged and that subtree is skipped; an unreadable
// root is fatal. The interrupt flag is checked at directory boundaries,
// so a stopped walk returns the candidates gathered so far.
func Collect(root string, opts Options, intr *interrupt.Flag) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	res := &Result{}
	visited := make(map[string]struct{})
	stack := []string{root}

	for len(stack) > 0 {
		if intr != nil && intr.Stopped() {
			break
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if opts.FollowSymlinks {
			canon, err := filepath.EvalSymlinks(dir)
			if err != nil {
				logger.Errorf("resolve %s: %v", dir, err)
				continue
			}
			if _, seen := visited[canon]; seen {
				logger.Warnf("circular symlink detected at %s, skipping branch", dir)
				continue
			}
			visited[canon] = struct{}{}
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.Warnf("cannot read directory %s: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			full := filepath.Join(dir, name)

			isDir := entry.IsDir()
			isFile := entry.Type().IsRegular()
			if entry.Type()&os.ModeSymlink != 0 {
				if !opts.FollowSymlinks {
					logger.Debugf("skipping symlink: %s", full)
					res.Excluded++
					continue
				}
				target, err := os.Stat(full)
				if err != nil {
					logger.Warnf("broken symlink %s: %v", full, err)
					res.Excluded++
					continue
				}
				isDir = target.IsDir()
				isFile = target.Mode().IsRegular()
			}

			switch {
			case isDir:
				if opts.folderExcluded(name) {
					logger.Debugf("excluding folder: %s", full)
					continue
				}
				stack = append(stack, full)
			case isFile:
				if opts.fileExcluded(name) {
					logger.Debugf("excluding file: %s", full)
					res.Excluded++
					continue
				}
				res.Paths = append(res.Paths, full)
				res.Included++
			}
		}
	}

	return res, nil
}

func (o Options) folderExcluded(name string) bool {
	if _, ok := o.ExcludedFolders[name]; ok {
		return true
	}
	return pattern.Matches(name, o.ExcludePatterns)
}

func (o Options) fileExcluded(name string) bool {
	if _, ok := o.ExcludedFiles[name]; ok {
		return true
	}
	return pattern.Matches(name, o.ExcludePatterns)
}
