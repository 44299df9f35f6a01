package domain

import "time"

// Task describes one job run by the CLI.
//
// Supported actions:
//   - serve: load the inputs and expose them as a SPARQL endpoint
//   - convert: merge the inputs and write them in the format picked by Output
//   - compress: merge the inputs and write a COTTAS file sorted by Index
type Task struct {
	Action string       `json:"action" yaml:"action"` // The action to perform
	Files  []string     `json:"files" yaml:"files"`   // Paths or glob patterns
	Output string       `json:"output,omitempty" yaml:"output,omitempty"`
	Index  string       `json:"index,omitempty" yaml:"index,omitempty"` // COTTAS sort order (compress)
	Store  StoreConfig  `json:"store" yaml:"store"`
	Serve  *ServeConfig `json:"serve,omitempty" yaml:"serve,omitempty"`
}

// StoreConfig selects and locates the dataset backend.
type StoreConfig struct {
	Backend Backend `json:"backend" yaml:"backend"`
	URL     string  `json:"url,omitempty" yaml:"url,omitempty"`   // Oxigraph server URL
	Path    string  `json:"path,omitempty" yaml:"path,omitempty"` // Badger directory, in-memory when empty
	Debug   bool    `json:"-" yaml:"-"`
}

// ServeConfig holds the HTTP settings of the serve action.
type ServeConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	EnableUpdate bool   `json:"enable_update" yaml:"enable_update"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	// QueryTimeout bounds each query and update; zero means no limit.
	QueryTimeout time.Duration `json:"query_timeout,omitempty" yaml:"query_timeout,omitempty"`
	APIKeyHash   string `json:"-" yaml:"-"` // bcrypt hash of the update API key
	TokenSecret  string `json:"-" yaml:"-"` // HMAC secret for update bearer tokens
	UpdateLog    string `json:"update_log,omitempty" yaml:"update_log,omitempty"`
}

// Action names understood by the operations registry.
const (
	ActionServe    = "serve"
	ActionConvert  = "convert"
	ActionCompress = "compress"
)
