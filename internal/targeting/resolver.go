package targeting

import (
	"context"
	"fmt"
	"sort"

	"github.com/pakuni-app/notification-engine/internal/models"
)

// AudienceDirectory answers "who matches this targeting criterion". It is
// the external user directory; the engine never enumerates users itself.
type AudienceDirectory interface {
	// MatchUsers returns the identities matching the target type and
	// criteria. For all_users it returns every active device-registered
	// identity.
	MatchUsers(ctx context.Context, targetType models.TargetType, criteria map[string]string) ([]string, error)

	// Placeholders returns the per-recipient template bindings known to
	// the directory (e.g. name, university, program).
	Placeholders(ctx context.Context, recipientID string) (map[string]string, error)
}

// Resolver turns an abstract audience description into a concrete
// recipient set.
type Resolver struct {
	directory AudienceDirectory
}

func NewResolver(directory AudienceDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve returns the recipient set for the given targeting. An explicit
// non-empty override list short-circuits directory resolution entirely.
// The result is deduplicated and sorted, so identical inputs against an
// unchanged directory yield identical sets.
func (r *Resolver) Resolve(ctx context.Context, targetType models.TargetType, criteria map[string]string, override []string) ([]string, error) {
	if len(override) > 0 {
		return dedupe(override), nil
	}

	if key := targetType.CriteriaKey(); key != "" && criteria[key] == "" {
		// validated at save time; a stored trigger should never get here
		return nil, fmt.Errorf("target type %q missing criteria key %q", targetType, key)
	}

	recipients, err := r.directory.MatchUsers(ctx, targetType, criteria)
	if err != nil {
		return nil, fmt.Errorf("audience directory lookup failed: %w", err)
	}

	return dedupe(recipients), nil
}

// Placeholders proxies the directory's per-recipient bindings.
func (r *Resolver) Placeholders(ctx context.Context, recipientID string) (map[string]string, error) {
	return r.directory.Placeholders(ctx, recipientID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
