package docker

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/oklog/ulid/v2"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/slok/codesbx/internal/log"
	"github.com/slok/codesbx/internal/model"
)

// DockerClient is the interface for Docker operations that we use.
// This allows us to mock the Docker client for testing.
type DockerClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageInspect(ctx context.Context, imageID string, inspectOpts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerAttach(ctx context.Context, container string, options container.AttachOptions) (types.HijackedResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// RunnerConfig is the configuration for the Docker solc runner.
type RunnerConfig struct {
	Client DockerClient
	// Image is the solc image, its entrypoint must be the solc binary.
	Image string
	// Platform is optional (e.g. `linux/amd64`).
	Platform  string
	Resources model.Resources
	Logger    log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Client == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("could not create Docker client: %w", err)
		}
		c.Client = cli
	}
	if c.Image == "" {
		c.Image = model.DefaultSolcImage
	}
	if c.Platform != "" {
		if _, err := parsePlatform(c.Platform); err != nil {
			return err
		}
	}
	if c.Resources.VCPUs < 0 || c.Resources.MemoryMB < 0 {
		return fmt.Errorf("resources can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "compiler.Docker"})
	return nil
}

// Runner runs solc inside a short lived Docker container without network.
type Runner struct {
	client    DockerClient
	image     string
	platform  *ocispec.Platform
	resources model.Resources
	logger    log.Logger
}

// NewRunner returns a new Docker solc runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var platform *ocispec.Platform
	if cfg.Platform != "" {
		platform, _ = parsePlatform(cfg.Platform)
	}

	return &Runner{
		client:    cfg.Client,
		image:     cfg.Image,
		platform:  platform,
		resources: cfg.Resources,
		logger:    cfg.Logger,
	}, nil
}

// Run runs `solc --standard-json` in a new container, the input is sent
// through the container stdin and the container is always removed.
func (r *Runner) Run(ctx context.Context, input []byte) ([]byte, error) {
	if err := r.ensureImage(ctx); err != nil {
		return nil, err
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	containerName := fmt.Sprintf("codesbx-solc-%s", strings.ToLower(id))

	containerConfig := &container.Config{
		Image:           r.image,
		Cmd:             []string{"--standard-json"},
		AttachStdin:     true,
		AttachStdout:    true,
		AttachStderr:    true,
		OpenStdin:       true,
		StdinOnce:       true,
		NetworkDisabled: true,
	}
	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			NanoCPUs: int64(r.resources.VCPUs * 1e9),            // Convert VCPUs to nano CPUs
			Memory:   int64(r.resources.MemoryMB * 1024 * 1024), // Convert MB to bytes
		},
	}

	r.logger.Debugf("Creating container: %s", containerName)
	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, r.platform, containerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		// Use a context that is not cancelled so timed out containers are removed too.
		rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := r.client.ContainerRemove(rmCtx, resp.ID, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Warningf("could not remove container %s: %s", resp.ID, err)
		}
	}()

	hijacked, err := r.client.ContainerAttach(ctx, resp.ID, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach container: %w", err)
	}
	defer hijacked.Close()

	waitCh, waitErrCh := r.client.ContainerWait(ctx, resp.ID, container.WaitConditionNextExit)

	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	if _, err := hijacked.Conn.Write(input); err != nil {
		return nil, fmt.Errorf("could not write compiler input: %w", err)
	}
	if err := hijacked.CloseWrite(); err != nil {
		return nil, fmt.Errorf("could not close compiler input: %w", err)
	}

	var stdout, stderr bytes.Buffer
	copyErrCh := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, hijacked.Reader)
		copyErrCh <- err
	}()

	var exitCode int64
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("compiler container was stopped: %w", ctx.Err())
	case err := <-waitErrCh:
		return nil, fmt.Errorf("failed waiting container: %w", err)
	case w := <-waitCh:
		if w.Error != nil {
			return nil, fmt.Errorf("container wait error: %s", w.Error.Message)
		}
		exitCode = w.StatusCode
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("compiler container was stopped: %w", ctx.Err())
	case err := <-copyErrCh:
		if err != nil {
			return nil, fmt.Errorf("could not read compiler output: %w", err)
		}
	}

	if exitCode != 0 && stdout.Len() == 0 {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", exitCode)
		}
		return nil, fmt.Errorf("solc failed: %s", msg)
	}

	return stdout.Bytes(), nil
}

func (r *Runner) ensureImage(ctx context.Context) error {
	if _, err := r.client.ImageInspect(ctx, r.image); err == nil {
		return nil
	}

	r.logger.Infof("Pulling image: %s", r.image)
	opts := image.PullOptions{}
	if r.platform != nil {
		opts.Platform = platformString(*r.platform)
	}
	pullResp, err := r.client.ImagePull(ctx, r.image, opts)
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", r.image, err)
	}
	defer pullResp.Close()

	// Consume the pull response to ensure it completes.
	if _, err := io.Copy(io.Discard, pullResp); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", r.image, err)
	}

	return nil
}

// Check performs preflight checks for the Docker runner.
func (r *Runner) Check(ctx context.Context) []model.CheckResult {
	var results []model.CheckResult

	ping, err := r.client.Ping(ctx)
	if err != nil {
		return append(results, model.CheckResult{
			ID:      "docker_daemon",
			Message: fmt.Sprintf("Docker daemon not reachable: %v", err),
			Status:  model.CheckStatusError,
		})
	}
	results = append(results, model.CheckResult{
		ID:      "docker_daemon",
		Message: fmt.Sprintf("Docker daemon reachable (API %s, %s)", ping.APIVersion, ping.OSType),
		Status:  model.CheckStatusOK,
	})

	if _, err := r.client.ImageInspect(ctx, r.image); err != nil {
		results = append(results, model.CheckResult{
			ID:      "solc_image",
			Message: fmt.Sprintf("Image %s not present, it will be pulled on first compile", r.image),
			Status:  model.CheckStatusWarning,
		})
	} else {
		results = append(results, model.CheckResult{
			ID:      "solc_image",
			Message: fmt.Sprintf("Image %s present", r.image),
			Status:  model.CheckStatusOK,
		})
	}

	return results
}

// parsePlatform parses `os/arch[/variant]`.
func parsePlatform(s string) (*ocispec.Platform, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid platform %q, must be os/arch[/variant]: %w", s, model.ErrNotValid)
	}

	p := &ocispec.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		p.Variant = parts[2]
	}
	return p, nil
}

func platformString(p ocispec.Platform) string {
	s := p.OS + "/" + p.Architecture
	if p.Variant != "" {
		s += "/" + p.Variant
	}
	return s
}
