package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Registry tracks which namespace classes are known to exist. The memo is an
// optimization only: Forget and Revalidate are the paths for noticing a class
// removed by another process.
type Registry struct {
	client SchemaClient

	mu    sync.RWMutex
	known map[string]struct{}
}

func NewRegistry(client SchemaClient) *Registry {
	return &Registry{client: client, known: make(map[string]struct{})}
}

// Ensure makes sure the class for namespace exists and returns its name.
// Losing a creation race to another worker is not an error.
func (r *Registry) Ensure(ctx context.Context, namespace string) (string, error) {
	className := ClassName(namespace)
	if r.isKnown(className) {
		return className, nil
	}

	exists, err := r.client.ClassExists(ctx, className)
	if err != nil {
		return "", fmt.Errorf("check class %s: %w", className, err)
	}

	if exists {
		if err := ensureProperties(ctx, r.client, className); err != nil {
			return "", fmt.Errorf("upgrade class %s: %w", className, err)
		}
	} else if err := r.client.CreateClass(ctx, classDefinition(className, namespace)); err != nil {
		again, checkErr := r.client.ClassExists(ctx, className)
		if checkErr != nil || !again {
			return "", fmt.Errorf("create class %s: %w", className, err)
		}
		slog.InfoContext(ctx, "class created concurrently", "class", className)
	} else {
		slog.InfoContext(ctx, "class created", "class", className)
	}

	r.markKnown(className)
	return className, nil
}

// Exists reports whether the namespace's class exists, consulting the memo
// first. A positive remote answer is memoized; a negative one never is.
func (r *Registry) Exists(ctx context.Context, namespace string) (bool, error) {
	className := ClassName(namespace)
	if r.isKnown(className) {
		return true, nil
	}

	exists, err := r.client.ClassExists(ctx, className)
	if err != nil {
		return false, fmt.Errorf("check class %s: %w", className, err)
	}
	if exists {
		r.markKnown(className)
	}
	return exists, nil
}

// Drop deletes the namespace's class. Dropping an absent class is a no-op.
func (r *Registry) Drop(ctx context.Context, namespace string) error {
	className := ClassName(namespace)
	defer r.Forget(namespace)

	exists, err := r.client.ClassExists(ctx, className)
	if err != nil {
		return fmt.Errorf("check class %s: %w", className, err)
	}
	if !exists {
		return nil
	}

	if err := r.client.DeleteClass(ctx, className); err != nil {
		still, checkErr := r.client.ClassExists(ctx, className)
		if checkErr != nil || still {
			return fmt.Errorf("delete class %s: %w", className, err)
		}
	}
	slog.InfoContext(ctx, "class deleted", "class", className)
	return nil
}

func (r *Registry) Forget(namespace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.known, ClassName(namespace))
}

// Revalidate re-checks every memoized class and drops the ones that no
// longer exist. Classes that cannot be checked stay memoized.
func (r *Registry) Revalidate(ctx context.Context) error {
	r.mu.RLock()
	classes := make([]string, 0, len(r.known))
	for c := range r.known {
		classes = append(classes, c)
	}
	r.mu.RUnlock()

	var errs []error
	for _, c := range classes {
		exists, err := r.client.ClassExists(ctx, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("check class %s: %w", c, err))
			continue
		}
		if !exists {
			r.mu.Lock()
			delete(r.known, c)
			r.mu.Unlock()
			slog.WarnContext(ctx, "class disappeared, dropping from registry", "class", c)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) KnownCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.known)
}

func (r *Registry) isKnown(className string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.known[className]
	return ok
}

func (r *Registry) markKnown(className string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known[className] = struct{}{}
}
