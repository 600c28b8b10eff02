package actor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alfredjeanlab/troupe/internal/messaging"
	"github.com/alfredjeanlab/troupe/internal/model"
)

// Environment markers exported to actor tools.
const (
	FilesEnv       = "TROUPE_FILES"
	ToolsEnv       = "TROUPE_TOOLS"
	CommonFilesEnv = "TROUPE_COMMON_FILES"
	CommonToolsEnv = "TROUPE_COMMON_TOOLS"
)

// Paths lists the resource directories visible to an actor. Actor
// directories are searched before common ones.
type Paths struct {
	ActorFiles  []string `json:"actor_files,omitempty"`
	CommonFiles []string `json:"common_files,omitempty"`
	ActorTools  []string `json:"actor_tools,omitempty"`
	CommonTools []string `json:"common_tools,omitempty"`
}

// PathsFromEnv reads the colon separated environment markers.
func PathsFromEnv() Paths {
	return Paths{
		ActorFiles:  splitEnv(FilesEnv),
		CommonFiles: splitEnv(CommonFilesEnv),
		ActorTools:  splitEnv(ToolsEnv),
		CommonTools: splitEnv(CommonToolsEnv),
	}
}

func splitEnv(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return strings.Split(v, string(os.PathListSeparator))
}

// Files returns actor then common file directories.
func (p Paths) Files() []string { return append(append([]string(nil), p.ActorFiles...), p.CommonFiles...) }

// Tools returns actor then common tool directories.
func (p Paths) Tools() []string { return append(append([]string(nil), p.ActorTools...), p.CommonTools...) }

// Context is what a running actor sees of the framework.
type Context struct {
	Log *slog.Logger
	// Configuration is the workflow configuration message, if one was
	// produced before the actor ran.
	Configuration *model.Instance
	// Args are the call arguments after a JSON round trip: numbers arrive
	// as json.Number, objects and structs as map[string]any, arrays as
	// []any. Actors convert them to their own types.
	Args          []any
	Libraries     Libraries
	Paths         Paths
	ToolTimeout   time.Duration

	reg       Registration
	messaging *messaging.InProcess
}

// NewContext prepares the context for one run of r. When config is set, the
// first consumable message of that schema becomes the Configuration.
func NewContext(r Registration, m *messaging.InProcess, log *slog.Logger, config *model.Schema) (*Context, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Context{
		Log:         log.With("actor", r.Name),
		ToolTimeout: DefaultToolTimeout,
		reg:         r,
		messaging:   m,
	}
	if config != nil && m != nil {
		found, err := m.Consume(config)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			c.Configuration = found[0]
		}
	}
	return c, nil
}

// Name returns the actor name.
func (c *Context) Name() string { return c.reg.Name }

// Produce sends messages to later actors. Instances whose schema is not
// among the declared produces are logged and dropped, as are nil instances.
func (c *Context) Produce(ctx context.Context, insts ...*model.Instance) error {
	if c.messaging == nil {
		return nil
	}
	for _, inst := range insts {
		if inst == nil {
			c.Log.Warn("actor is producing a nil message, ignoring it")
			continue
		}
		if !declares(c.reg.Produces, inst.Schema()) {
			c.Log.Warn("actor is producing a message it does not declare, ignoring it", "type", inst.Schema().Name())
			continue
		}
		if _, err := c.messaging.Produce(ctx, c.reg.Name, inst); err != nil {
			return err
		}
	}
	return nil
}

// Consume returns messages of the declared consumed schemas, optionally
// narrowed to schemas.
func (c *Context) Consume(schemas ...*model.Schema) ([]*model.Instance, error) {
	if c.messaging == nil {
		return nil, nil
	}
	if len(schemas) == 0 {
		schemas = c.reg.Consumes
		if len(schemas) == 0 {
			return nil, nil
		}
	}
	return c.messaging.Consume(schemas...)
}

// ReportError records an execution error. Unknown severities are reported
// as errors.
func (c *Context) ReportError(ctx context.Context, message string, severity messaging.Severity, details map[string]any) error {
	if c.messaging == nil {
		return nil
	}
	_, err := c.messaging.ReportError(ctx, c.reg.Name, message, severity, details)
	return err
}

// ShowMessage displays text to the user.
func (c *Context) ShowMessage(text string) {
	if c.messaging != nil {
		c.messaging.ShowMessage(text)
	}
}

// RequestAnswers returns the answers for d, or nil when d is not one of
// the actor's declared dialogs.
func (c *Context) RequestAnswers(d messaging.Dialog) map[string]any {
	if c.messaging == nil {
		return nil
	}
	for _, declared := range c.reg.Dialogs {
		if declared.Scope == d.Scope {
			return c.messaging.RequestAnswers(d)
		}
	}
	return nil
}

// GetFilePath returns the first regular file called name in the file
// directories, or "".
func (c *Context) GetFilePath(name string) string {
	return findPath(c.Paths.Files(), name, isFile)
}

// GetFolderPath returns the first directory called name in the file
// directories, or "".
func (c *Context) GetFolderPath(name string) string {
	return findPath(c.Paths.Files(), name, isDir)
}

// GetToolPath returns the first executable called name in the tool
// directories, or "".
func (c *Context) GetToolPath(name string) string {
	return findPath(c.Paths.Tools(), name, isExecutable)
}

func findPath(dirs []string, name string, ok func(os.FileInfo) bool) string {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && ok(info) {
			return p
		}
	}
	return ""
}

func isFile(fi os.FileInfo) bool       { return fi.Mode().IsRegular() }
func isDir(fi os.FileInfo) bool        { return fi.IsDir() }
func isExecutable(fi os.FileInfo) bool { return fi.Mode().IsRegular() && fi.Mode().Perm()&0o111 != 0 }

func declares(schemas []*model.Schema, s *model.Schema) bool {
	for _, d := range schemas {
		if d == s {
			return true
		}
	}
	return false
}
