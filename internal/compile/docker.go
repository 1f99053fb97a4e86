package compile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
)

const (
	// DefaultImage is the upstream typst compiler image.
	DefaultImage = "ghcr.io/typst/typst:latest"

	workDir     = "/work"
	waitTimeout = 60 * time.Second
)

// DockerCompiler compiles via a one-shot typst container with the
// document directory bind-mounted.
type DockerCompiler struct {
	cli       *client.Client
	imageName string
	logger    *slog.Logger

	// Labels are applied to compile containers. Tests use them to
	// sweep up leftovers.
	Labels map[string]string
}

// NewDocker builds a DockerCompiler. An empty imageName means
// DefaultImage.
func NewDocker(imageName string, logger *slog.Logger) (*DockerCompiler, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if imageName == "" {
		imageName = DefaultImage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DockerCompiler{
		cli:       cli,
		imageName: imageName,
		logger:    logger.With("component", "compile"),
	}, nil
}

// Name implements Compiler.
func (c *DockerCompiler) Name() string { return "docker:" + c.imageName }

// Close closes the Docker client.
func (c *DockerCompiler) Close() error { return c.cli.Close() }

// Available reports whether the Docker daemon answers.
func (c *DockerCompiler) Available(ctx context.Context) bool {
	_, err := c.cli.Ping(ctx)
	return err == nil
}

// Check implements Compiler. The document's directory is mounted so
// relative asset references resolve inside the container.
func (c *DockerCompiler) Check(ctx context.Context, typstPath string) error {
	abs, err := filepath.Abs(typstPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", typstPath, err)
	}

	if err := c.ensureImage(ctx); err != nil {
		return err
	}

	containerConfig := &container.Config{
		Image:      c.imageName,
		Cmd:        []string{"compile", filepath.Join(workDir, filepath.Base(abs)), "/dev/null"},
		WorkingDir: workDir,
		Labels:     c.Labels,
	}
	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   filepath.Dir(abs),
				Target:   workDir,
				ReadOnly: true,
			},
		},
	}

	resp, err := c.cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return fmt.Errorf("create compile container: %w", err)
	}
	defer func() {
		_ = c.cli.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true})
	}()

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start compile container: %w", err)
	}

	c.logger.Debug("compile check", "backend", c.Name(), "file", abs)
	exitCode, err := c.waitExited(ctx, resp.ID)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		output, _ := c.containerOutput(ctx, resp.ID)
		return &CompileError{
			Path:   typstPath,
			Output: output,
			Err:    fmt.Errorf("exit code %d", exitCode),
		}
	}
	return nil
}

// waitExited polls the container until it stops running.
func (c *DockerCompiler) waitExited(ctx context.Context, containerID string) (int, error) {
	var exitCode int
	err := retry.Do(
		func() error {
			info, err := c.cli.ContainerInspect(ctx, containerID)
			if err != nil {
				return err
			}
			if info.State == nil || info.State.Running {
				return fmt.Errorf("still running")
			}
			exitCode = info.State.ExitCode
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(waitTimeout.Seconds())),
		retry.Delay(1*time.Second),
	)
	if err != nil {
		return 0, fmt.Errorf("wait for compile container: %w", err)
	}
	return exitCode, nil
}

// containerOutput returns the container's combined stdout and stderr.
func (c *DockerCompiler) containerOutput(ctx context.Context, containerID string) (string, error) {
	logs, err := c.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", err
	}
	defer logs.Close()

	data, err := io.ReadAll(logs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ensureImage pulls the typst image if not present.
func (c *DockerCompiler) ensureImage(ctx context.Context) error {
	_, err := c.cli.ImageInspect(ctx, c.imageName)
	if err == nil {
		return nil
	}

	c.logger.Info("pulling compiler image", "image", c.imageName)
	reader, err := c.cli.ImagePull(ctx, c.imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", c.imageName, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull %s: %w", c.imageName, err)
	}
	return nil
}
