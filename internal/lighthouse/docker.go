package lighthouse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"
)

const DefaultDockerImage = "femtopixel/google-lighthouse:latest"

// DockerAPI is the part of the docker client the launcher uses.
type DockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

// DockerLauncher runs each audit in a throwaway container whose entrypoint
// is the lighthouse CLI. The container is the isolated browser context.
type DockerLauncher struct {
	api    DockerAPI
	image  string
	pullMu sync.Mutex
}

// NewDockerLauncher connects to the daemon configured in the environment.
func NewDockerLauncher(imageRef string) (*DockerLauncher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewDockerLauncherWithAPI(cli, imageRef), nil
}

func NewDockerLauncherWithAPI(api DockerAPI, imageRef string) *DockerLauncher {
	if imageRef == "" {
		imageRef = DefaultDockerImage
	}
	return &DockerLauncher{api: api, image: imageRef}
}

func (l *DockerLauncher) Launch(ctx context.Context) (Session, error) {
	if _, err := l.api.Ping(ctx); err != nil {
		return nil, fmt.Errorf("docker daemon unavailable: %w", err)
	}
	return &dockerSession{launcher: l}, nil
}

func (l *DockerLauncher) Close() error {
	return l.api.Close()
}

func (l *DockerLauncher) pull(ctx context.Context) error {
	l.pullMu.Lock()
	defer l.pullMu.Unlock()

	logrus.Infof("Pulling audit image %s", l.image)
	rc, err := l.api.ImagePull(ctx, l.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", l.image, err)
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained.
	_, err = io.Copy(io.Discard, rc)
	return err
}

type dockerSession struct {
	launcher    *DockerLauncher
	containerID string
}

func (s *dockerSession) Audit(ctx context.Context, url string, cfg Config) ([]byte, error) {
	api := s.launcher.api
	args := append(cfg.Args(url), "--chrome-flags="+strings.Join(ChromeFlags, " "))

	containerCfg := &container.Config{
		Image: s.launcher.image,
		Cmd:   args,
	}
	hostCfg := &container.HostConfig{
		// Chrome needs more than the default 64MB of /dev/shm.
		ShmSize: 1 << 30,
	}

	created, err := api.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if errdefs.IsNotFound(err) {
		if perr := s.launcher.pull(ctx); perr != nil {
			return nil, perr
		}
		created, err = api.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create audit container: %w", err)
	}
	s.containerID = created.ID

	if err := api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start audit container: %w", err)
	}

	var exitCode int64
	statusCh, errCh := api.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("failed waiting for audit container: %w", err)
		}
	case status := <-statusCh:
		if status.Error != nil {
			return nil, fmt.Errorf("audit container failed: %s", status.Error.Message)
		}
		exitCode = status.StatusCode
	}

	logs, err := api.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read audit container output: %w", err)
	}
	defer logs.Close()

	var stdout bytes.Buffer
	var stderr strings.Builder
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, fmt.Errorf("failed to read audit container output: %w", err)
	}

	if exitCode != 0 {
		return nil, fmt.Errorf("lighthouse exited with status %d: %s", exitCode, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// Close removes the container. It uses a fresh context so teardown still
// happens when the audit context was cancelled.
func (s *dockerSession) Close() error {
	if s.containerID == "" {
		return nil
	}
	err := s.launcher.api.ContainerRemove(context.Background(), s.containerID, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove audit container %s: %w", s.containerID, err)
	}
	s.containerID = ""
	return nil
}
