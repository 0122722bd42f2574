// Package volume implements the Isolated Volume Manager: a Docker named
// volume scoped to one tenant and one run, staged and read back through
// short-lived alpine helper containers rather than a host bind mount, so
// the engine works the same way against a remote Docker daemon as a
// local one. The staging and read-back helper containers follow the
// same shape as any fixed-config-volume helper, generalized from a pair
// of fixed volumes to one dynamically-named volume per run.
package volume

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/ridgeline-security/execengine/internal/errs"
)

const (
	helperImage = "alpine:latest"

	labelManaged = "studio.managed"
	labelTenant  = "studio.tenant"
	labelRun     = "studio.run"
	labelCreated = "studio.created"

	mountTarget = "/data"
)

// volumeState is the Uninitialized/Ready/Destroyed lifecycle a named
// Docker volume has no native notion of; Manager tracks it so a second
// Initialize for a name that already went through the cycle is rejected
// instead of silently succeeding against Docker's idempotent VolumeCreate.
type volumeState int

const (
	stateReady volumeState = iota
	stateDestroyed
)

// Manager stages and tears down one named Docker volume per invocation.
type Manager struct {
	client *client.Client

	mu        sync.Mutex
	lastNonce int64
	states    map[string]volumeState
}

// New creates a volume manager bound to an existing Docker client.
func New(cli *client.Client) *Manager {
	return &Manager{client: cli, states: make(map[string]volumeState)}
}

// NameFor derives the volume name for one invocation:
// tenant-<tenantId>-run-<runId>-<nonce>, restricted to characters Docker
// accepts in a volume name. nonce disambiguates sibling invocations
// sharing a run so each gets its own volume.
func NameFor(tenantID, runID string, nonce int64) string {
	return fmt.Sprintf("tenant-%s-run-%s-%d", sanitizeID(tenantID), sanitizeID(runID), nonce)
}

// nextNonce returns a strictly increasing value seeded from the current
// wall-clock millisecond: if the clock has not advanced past the last
// value handed out, it returns one more than that instead, so two
// invocations issued in the same millisecond never collide.
func (m *Manager) nextNonce() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= m.lastNonce {
		now = m.lastNonce + 1
	}
	m.lastNonce = now
	return now
}

// markReady registers name as initialized, rejecting a second call for a
// name already seen in either state.
func (m *Manager) markReady(name string) *errs.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.states[name]; exists {
		return errs.New(errs.Configuration, fmt.Sprintf("volume %q is already initialized", name))
	}
	m.states[name] = stateReady
	return nil
}

// markDestroyed transitions name to Destroyed and reports whether it was
// already there, so Cleanup can skip re-issuing VolumeRemove.
func (m *Manager) markDestroyed(name string) (alreadyDestroyed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[name] == stateDestroyed {
		return true
	}
	m.states[name] = stateDestroyed
	return false
}

func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// validateRelativePath rejects path traversal, absolute paths, shell
// metacharacters, and hidden-segment names before any Docker call is
// made.
func validateRelativePath(p string) *errs.Error {
	if p == "" {
		return errs.New(errs.Validation, "file path must not be empty")
	}
	if path.IsAbs(p) {
		return errs.New(errs.Validation, "file path must be relative").WithDetails(map[string]interface{}{"path": p})
	}
	clean := path.Clean(p)
	if clean != p || strings.HasPrefix(clean, "..") || clean == "." {
		return errs.New(errs.Validation, "file path must not escape the volume root").WithDetails(map[string]interface{}{"path": p})
	}
	for _, segment := range strings.Split(clean, "/") {
		if strings.HasPrefix(segment, ".") {
			return errs.New(errs.Validation, "file path must not contain hidden segments").WithDetails(map[string]interface{}{"path": p})
		}
	}
	const shellMetacharacters = "'\"`$\\;&|<>(){}*?~\n"
	if strings.ContainsAny(p, shellMetacharacters) {
		return errs.New(errs.Validation, "file path contains disallowed characters").WithDetails(map[string]interface{}{"path": p})
	}
	return nil
}

// Initialize creates the run's named volume and writes every file in
// files (relative path -> content) into it through a single writer
// container. If any path fails validation, no volume is created and no
// container is started.
func (m *Manager) Initialize(ctx context.Context, tenantID, runID string, files map[string][]byte) (string, *errs.Error) {
	for p := range files {
		if err := validateRelativePath(p); err != nil {
			return "", err
		}
	}

	name := NameFor(tenantID, runID, m.nextNonce())
	if err := m.markReady(name); err != nil {
		return "", err
	}

	if _, err := m.client.VolumeCreate(ctx, volume.CreateOptions{
		Name: name,
		Labels: map[string]string{
			labelManaged: "true",
			labelTenant:  tenantID,
			labelRun:     runID,
			labelCreated: time.Now().UTC().Format(time.RFC3339),
		},
	}); err != nil {
		m.markDestroyed(name)
		return "", errs.Wrap(errs.Container, err, "failed to create isolated volume")
	}

	if len(files) == 0 {
		return name, nil
	}

	if err := m.ensureHelperImage(ctx); err != nil {
		return "", err
	}

	script := buildWriteScript(files)
	cfg := &container.Config{
		Image: helperImage,
		Cmd:   []string{"sh", "-c", script},
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{Type: mount.TypeVolume, Source: name, Target: mountTarget}},
	}
	if err := m.runHelper(ctx, cfg, hostCfg); err != nil {
		return "", err
	}
	return name, nil
}

// buildWriteScript composes a single shell script writing every file
// with its content single-quote-escaped, so every file is written by
// one container invocation.
func buildWriteScript(files map[string][]byte) string {
	var b strings.Builder
	for p, content := range files {
		escaped := strings.ReplaceAll(string(content), "'", "'\\''")
		target := path.Join(mountTarget, p)
		fmt.Fprintf(&b, "mkdir -p \"$(dirname '%s')\" && printf '%%s' '%s' > '%s'\n", target, escaped, target)
	}
	return b.String()
}

// ReadFiles reads back a set of files from the run's volume through a
// single reader container, returning their contents keyed by the
// requested relative path. A requested file that does not exist in the
// volume is omitted from the result rather than failing the whole read.
func (m *Manager) ReadFiles(ctx context.Context, volumeName string, paths []string) (map[string][]byte, *errs.Error) {
	for _, p := range paths {
		if err := validateRelativePath(p); err != nil {
			return nil, err
		}
	}
	if err := m.ensureHelperImage(ctx); err != nil {
		return nil, err
	}

	const sep = "--STUDIO-FILE-BOUNDARY--"
	var script strings.Builder
	for _, p := range paths {
		target := path.Join(mountTarget, p)
		fmt.Fprintf(&script, "printf '%s%s\\n'; if [ -f '%s' ]; then cat '%s'; fi\n", sep, p, target, target)
	}

	cfg := &container.Config{
		Image: helperImage,
		Cmd:   []string{"sh", "-c", script.String()},
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{Type: mount.TypeVolume, Source: volumeName, Target: mountTarget, ReadOnly: true}},
	}
	output, err := m.runHelperWithOutput(ctx, cfg, hostCfg)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(paths))
	chunks := strings.Split(string(output), sep)
	for _, chunk := range chunks[1:] {
		nl := strings.IndexByte(chunk, '\n')
		if nl < 0 {
			continue
		}
		name := chunk[:nl]
		body := chunk[nl+1:]
		if body != "" {
			result[name] = []byte(body)
		}
	}
	return result, nil
}

// GetVolumeConfig returns the mount.Mount to attach to a component's
// container so it sees the run's isolated volume at mountTarget.
func GetVolumeConfig(volumeName string, readOnly bool) mount.Mount {
	return mount.Mount{Type: mount.TypeVolume, Source: volumeName, Target: mountTarget, ReadOnly: readOnly}
}

// TargetPath returns the absolute in-container path for a file staged
// into an isolated volume under relPath, so callers building argv never
// need to know the mount point itself.
func TargetPath(relPath string) string {
	return path.Join(mountTarget, relPath)
}

// Cleanup removes the run's volume. It is idempotent and best-effort: a
// volume that is already gone yields nil, any other remove failure is
// returned for the caller to log, and Cleanup is safe to call more than
// once.
func (m *Manager) Cleanup(ctx context.Context, volumeName string) error {
	if alreadyDestroyed := m.markDestroyed(volumeName); alreadyDestroyed {
		return nil
	}
	err := m.client.VolumeRemove(ctx, volumeName, true)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("volume cleanup failed for %q: %w", volumeName, err)
	}
	return nil
}

// Sweep removes every studio-managed volume older than olderThan,
// returning the names it removed. It is the background counterpart to
// Cleanup for orphans left behind by a crashed worker process.
func (m *Manager) Sweep(ctx context.Context, olderThan time.Duration) ([]string, error) {
	f := filters.NewArgs()
	f.Add("label", labelManaged+"=true")
	volumes, err := m.client.VolumeList(ctx, volume.ListOptions{Filters: f})
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	var removed []string
	for _, v := range volumes.Volumes {
		createdRaw, ok := v.Labels[labelCreated]
		if !ok {
			continue
		}
		created, parseErr := time.Parse(time.RFC3339, createdRaw)
		if parseErr != nil || created.After(cutoff) {
			continue
		}
		if err := m.Cleanup(ctx, v.Name); err != nil {
			continue
		}
		removed = append(removed, v.Name)
	}
	return removed, nil
}

func isNotFound(err error) bool {
	return client.IsErrNotFound(err)
}

func (m *Manager) ensureHelperImage(ctx context.Context) *errs.Error {
	if _, err := m.client.ImageInspect(ctx, helperImage); err == nil {
		return nil
	}
	reader, err := m.client.ImagePull(ctx, helperImage, image.PullOptions{})
	if err != nil {
		return errs.Wrap(errs.Container, err, "failed to pull volume helper image")
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return errs.Wrap(errs.Container, err, "failed to pull volume helper image")
	}
	return nil
}

func (m *Manager) runHelper(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig) *errs.Error {
	_, err := m.runHelperWithOutput(ctx, cfg, hostCfg)
	return err
}

func (m *Manager) runHelperWithOutput(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig) ([]byte, *errs.Error) {
	resp, err := m.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return nil, errs.Wrap(errs.Container, err, "failed to create volume helper container")
	}
	defer m.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

	if err := m.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, errs.Wrap(errs.Container, err, "failed to start volume helper container")
	}

	statusCh, errCh := m.client.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return nil, errs.Wrap(errs.Container, err, "error waiting for volume helper container")
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			logs := m.containerOutput(ctx, resp.ID)
			return nil, errs.New(errs.Container, "volume helper container exited non-zero").
				WithDetails(map[string]interface{}{"exitCode": status.StatusCode, "output": logs})
		}
	}

	return []byte(m.containerOutput(ctx, resp.ID)), nil
}

func (m *Manager) containerOutput(ctx context.Context, containerID string) string {
	reader, err := m.client.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return ""
	}
	defer reader.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
		return ""
	}
	return stdout.String()
}
