package deploy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/require"

	"github.com/artpar/dploy/internal/core/appconfig"
	"github.com/artpar/dploy/internal/core/deployment"
	"github.com/artpar/dploy/internal/core/domain"
	"github.com/artpar/dploy/internal/core/services"
	"github.com/artpar/dploy/internal/shell/docker"
)

// =============================================================================
// Fake Docker Client
// =============================================================================

// fakeClient records runtime calls and keeps container state in memory.
type fakeClient struct {
	mu sync.Mutex

	calls      []string
	containers map[string]bool // name -> running
	specs      map[string]docker.ContainerSpec
	builds     []docker.BuildSpec
	networks   []docker.NetworkSpec

	inspectErr error
	pullErr    error
	buildErr   error
	execFn     func(name string, cmd []string) (*docker.ExecResult, error)
	logs       string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		containers: make(map[string]bool),
		specs:      make(map[string]docker.ContainerSpec),
	}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func notFound(op, name string) error {
	return docker.NewDockerError(op, "container", name, "container not found", docker.ErrContainerNotFound)
}

func (f *fakeClient) CreateContainer(_ context.Context, spec docker.ContainerSpec) (string, error) {
	f.record("create " + spec.Name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[spec.Name]; ok {
		return "", docker.ErrContainerAlreadyExists
	}
	f.containers[spec.Name] = false
	f.specs[spec.Name] = spec
	return "id-" + spec.Name, nil
}

func (f *fakeClient) StartContainer(_ context.Context, name string) error {
	f.record("start " + name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[name]; !ok {
		return notFound("StartContainer", name)
	}
	f.containers[name] = true
	return nil
}

func (f *fakeClient) StopContainer(_ context.Context, name string, _ *time.Duration) error {
	f.record("stop " + name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[name]; !ok {
		return notFound("StopContainer", name)
	}
	f.containers[name] = false
	return nil
}

func (f *fakeClient) RemoveContainer(_ context.Context, name string, _ docker.RemoveOptions) error {
	f.record("remove " + name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[name]; !ok {
		return notFound("RemoveContainer", name)
	}
	delete(f.containers, name)
	return nil
}

func (f *fakeClient) InspectContainer(_ context.Context, name string) (*docker.ContainerInfo, error) {
	f.record("inspect " + name)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inspectErr != nil {
		return nil, f.inspectErr
	}
	running, ok := f.containers[name]
	if !ok {
		return nil, notFound("InspectContainer", name)
	}
	return &docker.ContainerInfo{ID: "id-" + name, Name: name, Running: running}, nil
}

func (f *fakeClient) ContainerLogs(ctx context.Context, name string, opts docker.LogOptions) (io.ReadCloser, error) {
	f.record("logs " + name)
	f.mu.Lock()
	_, ok := f.containers[name]
	f.mu.Unlock()
	if !ok {
		return nil, notFound("ContainerLogs", name)
	}

	var buf bytes.Buffer
	w := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	w.Write([]byte(f.logs))
	if !opts.Follow {
		return io.NopCloser(&buf), nil
	}

	// Following streams until the context is cancelled.
	pr, pw := io.Pipe()
	go func() {
		pw.Write(buf.Bytes())
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()
	return pr, nil
}

func (f *fakeClient) Exec(_ context.Context, name string, cmd []string) (*docker.ExecResult, error) {
	f.record("exec " + name)
	if f.execFn != nil {
		return f.execFn(name, cmd)
	}
	return &docker.ExecResult{}, nil
}

func (f *fakeClient) EnsureNetwork(_ context.Context, spec docker.NetworkSpec) (string, error) {
	f.record("network " + spec.Name)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.networks = append(f.networks, spec)
	return "net-" + spec.Name, nil
}

func (f *fakeClient) PullImage(_ context.Context, image string, _ docker.PullOptions) error {
	f.record("pull " + image)
	return f.pullErr
}

func (f *fakeClient) BuildImage(_ context.Context, spec docker.BuildSpec) error {
	f.record("build " + spec.Tag)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, spec)
	return f.buildErr
}

func (f *fakeClient) Ping(context.Context) error { return nil }
func (f *fakeClient) Close() error               { return nil }

var _ docker.Client = (*fakeClient)(nil)

// =============================================================================
// Fixtures
// =============================================================================

type sequentialAllocator struct{ next int }

func (a *sequentialAllocator) Allocate() (int, error) {
	a.next++
	return a.next, nil
}

type fixture struct {
	client   *fakeClient
	deployer *Deployer
	ctx      *deployment.Context
	set      *services.Set
	envPath  string
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	pings    []string
}

func demoConfig(t *testing.T, deps ...string) appconfig.AppConfig {
	t.Helper()
	cfg := appconfig.AppConfig{
		Name:    "demo",
		EnvFile: filepath.Join(t.TempDir(), ".env"),
		Env:     []string{"API_KEY"},
		Watch:   []string{"."},
	}
	for _, d := range deps {
		cfg.Dependencies = append(cfg.Dependencies, appconfig.Dependency{Kind: d})
	}
	return cfg
}

func newFixture(t *testing.T, cmd domain.Command, cfg appconfig.AppConfig) *fixture {
	t.Helper()
	ctx := deployment.NewContext(cmd, "dev", cfg, t.TempDir())
	set, err := services.New(ctx, &sequentialAllocator{next: 49152})
	require.NoError(t, err)

	f := &fixture{
		client:  newFakeClient(),
		ctx:     ctx,
		set:     set,
		envPath: cfg.EnvFile,
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
	}
	f.deployer = New(Config{
		Docker:            f.client,
		Context:           ctx,
		Services:          set,
		RunID:             "run-1",
		Stdout:            f.stdout,
		Stderr:            f.stderr,
		ReadinessTimeout:  time.Second,
		ReadinessInterval: 10 * time.Millisecond,
		LookupEnv:         func(string) (string, bool) { return "", false },
	})
	f.deployer.pingPostgres = func(_ context.Context, url string) error {
		f.pings = append(f.pings, url)
		return nil
	}
	return f
}

var errBoom = errors.New("boom")
