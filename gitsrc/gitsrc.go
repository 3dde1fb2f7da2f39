// Package gitsrc loads the three revisions a merge operates over from a Git
// repository: resolving refs (branch, tag, commit hash, or revision) to commits and
// reading a path's content at each one, for the `javamerge git` subcommand
// and Git merge-driver mode.
package gitsrc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repository wraps a go-git repository.
type Repository struct {
	repo *git.Repository
	path string
}

// Open opens an existing Git repository at path.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("gitsrc: opening repository: %w", err)
	}
	return &Repository{repo: repo, path: path}, nil
}

// ResolveRef resolves a branch name, tag, commit hash, or revision
// expression (e.g. HEAD, HEAD~5) to a commit.
func (r *Repository) ResolveRef(refName string) (*object.Commit, error) {
	if ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(refName), true); err == nil {
		return r.repo.CommitObject(ref.Hash())
	}
	if ref, err := r.repo.Reference(plumbing.NewTagReferenceName(refName), true); err == nil {
		return r.repo.CommitObject(ref.Hash())
	}
	if h, err := r.repo.ResolveRevision(plumbing.Revision(refName)); err == nil {
		return r.repo.CommitObject(*h)
	}
	hash := plumbing.NewHash(refName)
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("gitsrc: resolving ref %q: not a branch, tag, commit hash, or revision", refName)
	}
	return commit, nil
}

// MergeBase returns the best common ancestor of a and b, the conventional
// BASE revision when the caller supplies only two refs to merge.
func (r *Repository) MergeBase(a, b *object.Commit) (*object.Commit, error) {
	bases, err := a.MergeBase(b)
	if err != nil {
		return nil, fmt.Errorf("gitsrc: computing merge base: %w", err)
	}
	if len(bases) == 0 {
		return nil, fmt.Errorf("gitsrc: no common ancestor between %s and %s", a.Hash, b.Hash)
	}
	return bases[0], nil
}

// ReadFile returns path's content at commit. present is false (with a nil
// error) when the path doesn't exist in that commit's tree — an add/add or
// add/no-op scenario the caller, not gitsrc, decides how to resolve.
func (r *Repository) ReadFile(commit *object.Commit, path string) (content []byte, present bool, err error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, false, fmt.Errorf("gitsrc: reading tree for %s: %w", commit.Hash, err)
	}
	f, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("gitsrc: reading %s at %s: %w", path, commit.Hash, err)
	}
	text, err := f.Contents()
	if err != nil {
		return nil, false, fmt.Errorf("gitsrc: reading contents of %s: %w", path, err)
	}
	return []byte(text), true, nil
}

// Revisions is the three byte slices a three-way merge is run over, plus
// which of them were actually present at their resolved commit (a file
// introduced on only one side has present=false for the other two).
type Revisions struct {
	Base, Left, Right                   []byte
	BasePresent, LeftPresent, RightPresent bool
}

// LoadRevisions resolves baseRef/leftRef/rightRef and reads path at each,
// the convenience entry point cmd/javamerge's `git` subcommand calls.
func (r *Repository) LoadRevisions(baseRef, leftRef, rightRef, path string) (*Revisions, error) {
	baseCommit, err := r.ResolveRef(baseRef)
	if err != nil {
		return nil, err
	}
	leftCommit, err := r.ResolveRef(leftRef)
	if err != nil {
		return nil, err
	}
	rightCommit, err := r.ResolveRef(rightRef)
	if err != nil {
		return nil, err
	}

	base, basePresent, err := r.ReadFile(baseCommit, path)
	if err != nil {
		return nil, err
	}
	left, leftPresent, err := r.ReadFile(leftCommit, path)
	if err != nil {
		return nil, err
	}
	right, rightPresent, err := r.ReadFile(rightCommit, path)
	if err != nil {
		return nil, err
	}

	return &Revisions{
		Base: base, Left: left, Right: right,
		BasePresent: basePresent, LeftPresent: leftPresent, RightPresent: rightPresent,
	}, nil
}

// DiffFiles reports which Java files differ between two commits, for the
// `batch` subcommand's Git-aware mode (only re-merge files the two branches
// actually touched).
func (r *Repository) DiffFiles(from, to *object.Commit) (added, modified, deleted []string, err error) {
	fromTree, err := from.Tree()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("gitsrc: reading tree for %s: %w", from.Hash, err)
	}
	toTree, err := to.Tree()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("gitsrc: reading tree for %s: %w", to.Hash, err)
	}
	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("gitsrc: computing diff: %w", err)
	}

	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			continue
		}
		switch action {
		case actionInsert:
			if isJava(change.To.Name) {
				added = append(added, change.To.Name)
			}
		case actionDelete:
			if isJava(change.From.Name) {
				deleted = append(deleted, change.From.Name)
			}
		case actionModify:
			if isJava(change.From.Name) {
				modified = append(modified, change.From.Name)
			}
		}
	}
	return added, modified, deleted, nil
}

// go-git's merkletrie.Action values (Insert=1, Delete=2, Modify=3) are not
// re-exported under friendly names by object.Change.Action, so name them
// here rather than sprinkling magic numbers through DiffFiles.
const (
	actionModify = 3
	actionInsert = 1
	actionDelete = 2
)

func isJava(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".java"
}
