package configmanager

import (
	"context"
	"os"
	"strings"

	"github.com/b25/tradecore/internal/domain"
)

// EnvSource reads process environment variables whose names start with
// prefix, stripping the prefix and turning the remainder into a dotted
// lowercase path ('_' -> '.'), per the configured Environment source
// convention.
type EnvSource struct {
	prefix   string
	priority Priority
}

func NewEnvSource(prefix string, priority Priority) *EnvSource {
	return &EnvSource{prefix: prefix, priority: priority}
}

func (e *EnvSource) SourceType() string { return "env" }
func (e *EnvSource) Priority() Priority { return e.priority }

func (e *EnvSource) Load(ctx context.Context) (ConfigData, error) {
	data := ConfigData{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if !strings.HasPrefix(key, e.prefix) {
			continue
		}
		stripped := strings.TrimPrefix(key, e.prefix)
		path := strings.ToLower(strings.ReplaceAll(stripped, "_", "."))
		setByPath(data, path, value)
	}
	return data, nil
}

func (e *EnvSource) Save(ctx context.Context, data ConfigData) error {
	return domain.StateConflict("EnvSource.Save", errEnvReadOnly)
}

func (e *EnvSource) SupportsHotReload() bool { return false }

func (e *EnvSource) StartWatching(ctx context.Context) (<-chan ChangeEvent, error) {
	return nil, domain.StateConflict("EnvSource.StartWatching", errEnvReadOnly)
}

func (e *EnvSource) StopWatching() error { return nil }

var errEnvReadOnly = envReadOnlyError{}

type envReadOnlyError struct{}

func (envReadOnlyError) Error() string { return "environment source does not support this operation" }

// setByPath writes value at the dotted path inside data, creating
// intermediate object nodes as needed.
func setByPath(data ConfigData, path string, value interface{}) {
	segments := strings.Split(path, ".")
	cur := data
	for i, seg := range segments {
		if i == len(segments)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(ConfigData)
		if !ok {
			next = ConfigData{}
			cur[seg] = next
		}
		cur = next
	}
}
