package model

// Config identifies how and at which revision the benchmark suite runs.
// A Config is immutable once constructed and may be reused across runs.
type Config struct {
	// Git identifier to benchmark (sha, branch, tag, relative ref).
	// Empty means the current working tree.
	Revision string `json:"revision,omitempty"`
	// Process environment overrides for the isolated run
	Env map[string]string `json:"env,omitempty"`
	// Command and flags launching the isolated run. Empty means the
	// current binary re-invoked with the "runner" command.
	Executable []string `json:"executable,omitempty"`
}

// Clone returns a deep copy so callers can derive a variant without
// mutating a Config already handed to the harness.
func (c Config) Clone() Config {
	out := Config{Revision: c.Revision}
	if c.Env != nil {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}
	if c.Executable != nil {
		out.Executable = append([]string(nil), c.Executable...)
	}
	return out
}
