package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/ctxmirror/internal/storage"
	"github.com/dshills/ctxmirror/pkg/types"
)

// ResolveTarget turns the alias and path supplied by a caller into a
// project key and a root directory:
//
//   - alias and path: path is normalized and alias is bound to it
//   - alias only: the stored binding is used
//   - path only: path is normalized
//   - neither: types.ErrTargetRequired
func (idx *Indexer) ResolveTarget(ctx context.Context, alias, path string) (key, root string, err error) {
	switch {
	case alias != "" && path != "":
		key, err = idx.normalizeRoot(path)
		if err != nil {
			return "", "", err
		}
		if err := idx.store.SetAlias(ctx, alias, key); err != nil {
			return "", "", fmt.Errorf("%w: alias %q: %w", types.ErrPersistence, alias, err)
		}
		log.Debugw("bound alias", "alias", alias, "key", key)
		return key, path, nil

	case alias != "":
		bound, err := idx.store.ResolveAlias(ctx, alias)
		if errors.Is(err, storage.ErrNotFound) {
			return "", "", fmt.Errorf("%w: %s (provide project_root_path to bind it)", types.ErrAliasNotFound, alias)
		}
		if err != nil {
			return "", "", err
		}
		key, err = idx.normalizeRoot(bound)
		if err != nil {
			return "", "", err
		}
		return key, bound, nil

	case path != "":
		key, err = idx.normalizeRoot(path)
		if err != nil {
			return "", "", err
		}
		return key, path, nil

	default:
		return "", "", types.ErrTargetRequired
	}
}

func (idx *Indexer) normalizeRoot(path string) (string, error) {
	key, err := idx.normalize(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrProjectNotFound, err)
	}
	return key, nil
}
