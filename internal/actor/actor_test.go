package actor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alfredjeanlab/troupe/internal/messaging"
	"github.com/alfredjeanlab/troupe/internal/model"
)

var (
	inSchema  = model.MustSchema("ActorTestIn", model.Declare("n", model.Integer()))
	outSchema = model.MustSchema("ActorTestOut", model.Declare("n", model.Integer()))
	cfgSchema = model.MustSchema("ActorTestConfig", model.Declare("mode", model.String(model.Default("fast"))))
)

type funcActor func(ctx context.Context, c *Context) error

func (f funcActor) Process(ctx context.Context, c *Context) error { return f(ctx, c) }

func testRegistration(fn funcActor) Registration {
	return Registration{
		ClassName: "TestActor",
		Name:      "test_actor",
		Path:      "actors/test",
		Tags:      []string{"UnitTestTag"},
		Consumes:  []*model.Schema{inSchema},
		Produces:  []*model.Schema{outSchema},
		Dialogs:   []messaging.Dialog{{Scope: "confirm", Components: []messaging.Component{{Key: "ok", Default: true}}}},
		New:       func() Actor { return fn },
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestMetadataOf(t *testing.T) {
	m, err := MetadataOf(testRegistration(nil))
	if err != nil {
		t.Fatalf("MetadataOf: %v", err)
	}
	if m.Description != defaultDescription {
		t.Errorf("Description = %q, want default", m.Description)
	}
	if len(m.Consumes) != 1 || m.Consumes[0] != "ActorTestIn" {
		t.Errorf("Consumes = %v", m.Consumes)
	}
	if len(m.Produces) != 1 || m.Produces[0] != "ActorTestOut" {
		t.Errorf("Produces = %v", m.Produces)
	}
}

func TestMetadataOf_Lint(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(r *Registration)
		want   error
	}{
		{"NoName", func(r *Registration) { r.Name = "" }, ErrMissingAttribute},
		{"NoClassName", func(r *Registration) { r.ClassName = "" }, ErrMissingAttribute},
		{"NoConstructor", func(r *Registration) { r.New = nil }, ErrMissingAttribute},
		{"NoTags", func(r *Registration) { r.Tags = nil }, ErrWrongAttributeType},
		{"EmptyTag", func(r *Registration) { r.Tags = []string{""} }, ErrWrongAttributeType},
		{"NilConsumes", func(r *Registration) { r.Consumes = []*model.Schema{nil} }, ErrWrongAttributeType},
		{"NilProduces", func(r *Registration) { r.Produces = []*model.Schema{nil} }, ErrWrongAttributeType},
		{"UnscopedDialog", func(r *Registration) { r.Dialogs = []messaging.Dialog{{}} }, ErrWrongAttributeType},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := testRegistration(nil)
			tc.mutate(&r)
			if _, err := MetadataOf(r); !errors.Is(err, tc.want) {
				t.Fatalf("MetadataOf error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegistrationsIn(t *testing.T) {
	Register(Registration{ClassName: "A", Name: "a", Path: "actors/reg-test/"})
	Register(Registration{ClassName: "B", Name: "b", Path: "actors/other"})
	got := RegistrationsIn("actors/reg-test")
	if len(got) != 1 || got[0].ClassName != "A" {
		t.Fatalf("RegistrationsIn = %+v", got)
	}
}

func TestLibraries(t *testing.T) {
	RegisterLibrary("actors/lib-test", "helpers", 42)
	RegisterLibrary("actors/lib-test", "alpha", "x")
	libs := LibrariesIn("actors/lib-test/")
	if got := libs.Names(); len(got) != 2 || got[0] != "alpha" || got[1] != "helpers" {
		t.Errorf("Names() = %v", got)
	}
	if v, ok := libs.Get("helpers"); !ok || v != 42 {
		t.Errorf("Get(helpers) = %v, %v", v, ok)
	}
	if _, ok := LibrariesIn("actors/none").Get("helpers"); ok {
		t.Error("library leaked into another directory")
	}
}

func TestRun_ProduceAndConsume(t *testing.T) {
	ctx := context.Background()
	m := messaging.New(messaging.WithOutput(&bytes.Buffer{}), messaging.WithLogger(quietLogger()))
	in, _ := inSchema.New(map[string]any{"n": 1})
	if _, err := m.Feed("seed", in); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	cfg, _ := cfgSchema.New(nil)
	if _, err := m.Feed("config", cfg); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	reg := testRegistration(func(ctx context.Context, c *Context) error {
		if got := os.Getenv(CurrentActorEnv); got != "test_actor" {
			t.Errorf("%s = %q during Process", CurrentActorEnv, got)
		}
		msgs, err := c.Consume()
		if err != nil {
			return err
		}
		var sum int64
		for _, msg := range msgs {
			sum += msg.Get("n").Interface().(int64)
		}
		out, err := outSchema.New(map[string]any{"n": int(sum) + 1})
		if err != nil {
			return err
		}
		undeclared, _ := inSchema.New(map[string]any{"n": 9})
		return c.Produce(ctx, out, nil, undeclared)
	})
	c, err := NewContext(reg, m, quietLogger(), cfgSchema)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if c.Configuration == nil || c.Configuration.Get("mode").Interface() != "fast" {
		t.Fatalf("Configuration = %v", c.Configuration)
	}

	t.Setenv(CurrentActorEnv, "outer")
	if err := Run(ctx, reg.New(), c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := os.Getenv(CurrentActorEnv); got != "outer" {
		t.Errorf("%s = %q after Run, want restored", CurrentActorEnv, got)
	}

	produced := m.Messages()
	if len(produced) != 1 || produced[0].Type != "ActorTestOut" {
		t.Fatalf("produced = %+v, want one ActorTestOut (nil and undeclared dropped)", produced)
	}
	if produced[0].Message.Data != `{"n":2}` {
		t.Errorf("data = %s", produced[0].Message.Data)
	}
}

func TestRun_Stop(t *testing.T) {
	for _, tc := range []struct {
		name       string
		err        error
		wantErr    bool
		wantErrors int
	}{
		{"Nil", nil, false, 0},
		{"StopExecution", ErrStopExecution, false, 0},
		{"WrappedStop", errors.Join(errors.New("done"), ErrStopExecution), false, 0},
		{"StopWithError", StopWithError("cannot continue: %s", "disk"), false, 1},
		{"Failure", errors.New("boom"), true, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := messaging.New(messaging.WithLogger(quietLogger()))
			reg := testRegistration(func(context.Context, *Context) error { return tc.err })
			c, err := NewContext(reg, m, quietLogger(), nil)
			if err != nil {
				t.Fatalf("NewContext: %v", err)
			}
			err = Run(context.Background(), reg.New(), c)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Run error = %v, wantErr %v", err, tc.wantErr)
			}
			if got := len(m.Errors()); got != tc.wantErrors {
				t.Errorf("reported %d errors, want %d", got, tc.wantErrors)
			}
		})
	}
}

func TestRequestAnswers(t *testing.T) {
	m := messaging.New(messaging.WithOutput(&bytes.Buffer{}))
	c, err := NewContext(testRegistration(nil), m, quietLogger(), nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	got := c.RequestAnswers(messaging.Dialog{Scope: "confirm", Components: []messaging.Component{{Key: "ok", Default: true}}})
	if got["ok"] != true {
		t.Errorf("answers = %v", got)
	}
	if got := c.RequestAnswers(messaging.Dialog{Scope: "undeclared"}); got != nil {
		t.Errorf("undeclared dialog answers = %v, want nil", got)
	}
}

func writeTool(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("writing tool: %v", err)
	}
}

func TestPaths(t *testing.T) {
	actorFiles, commonFiles, tools := t.TempDir(), t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(commonFiles, "data.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(actorFiles, "templates"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeTool(t, tools, "probe", "exit 0")
	if err := os.WriteFile(filepath.Join(tools, "notexec"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &Context{Paths: Paths{ActorFiles: []string{actorFiles}, CommonFiles: []string{commonFiles}, ActorTools: []string{tools}}}
	if got := c.GetFilePath("data.txt"); got != filepath.Join(commonFiles, "data.txt") {
		t.Errorf("GetFilePath = %q", got)
	}
	if got := c.GetFolderPath("templates"); got != filepath.Join(actorFiles, "templates") {
		t.Errorf("GetFolderPath = %q", got)
	}
	if got := c.GetFilePath("templates"); got != "" {
		t.Errorf("GetFilePath(dir) = %q, want empty", got)
	}
	if got := c.GetToolPath("probe"); got != filepath.Join(tools, "probe") {
		t.Errorf("GetToolPath = %q", got)
	}
	if got := c.GetToolPath("notexec"); got != "" {
		t.Errorf("GetToolPath(non-executable) = %q, want empty", got)
	}
}

func TestPathsFromEnv(t *testing.T) {
	t.Setenv(FilesEnv, "/a:/b")
	t.Setenv(ToolsEnv, "")
	t.Setenv(CommonFilesEnv, "/c")
	t.Setenv(CommonToolsEnv, "")
	p := PathsFromEnv()
	if got := p.Files(); len(got) != 3 || got[0] != "/a" || got[2] != "/c" {
		t.Errorf("Files() = %v", got)
	}
	if got := p.Tools(); len(got) != 0 {
		t.Errorf("Tools() = %v, want empty", got)
	}
}

func TestRunTool(t *testing.T) {
	tools := t.TempDir()
	writeTool(t, tools, "hello", `echo "hello $1 from $TROUPE_CURRENT_ACTOR"`)
	writeTool(t, tools, "fail", `echo "bad" >&2; exit 3`)

	c, err := NewContext(testRegistration(nil), nil, quietLogger(), nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	c.Paths = Paths{ActorTools: []string{tools}}

	res, err := c.RunTool(context.Background(), "hello", "world")
	if err != nil {
		t.Fatalf("RunTool: %v", err)
	}
	if res.Stdout != "hello world from test_actor" {
		t.Errorf("Stdout = %q", res.Stdout)
	}

	res, err = c.RunTool(context.Background(), "fail")
	if err == nil {
		t.Fatal("expected error for failing tool")
	}
	if res.ExitCode != 3 || !strings.Contains(res.Stderr, "bad") {
		t.Errorf("result = %+v", res)
	}

	if _, err := c.RunTool(context.Background(), "missing"); !errors.Is(err, ErrToolNotFound) {
		t.Errorf("RunTool(missing) error = %v, want ErrToolNotFound", err)
	}
}
