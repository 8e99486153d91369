package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/logger"
)

// DockerResolver resolves container IDs to container names through the
// Docker Engine API.
type DockerResolver struct {
	client *client.Client
	log    *zap.SugaredLogger
}

// NewDockerResolver creates a resolver for endpoint, which is either a unix
// socket path ("/var/run/docker.sock", "unix:///var/run/docker.sock") or an
// http/tcp address ("tcp://127.0.0.1:2375", "http://127.0.0.1:2375").
// TLS settings and a pinned API version are taken from the DOCKER_
// environment; otherwise the version is negotiated with the daemon.
func NewDockerResolver(endpoint string, timeout time.Duration, log *zap.SugaredLogger) (*DockerResolver, error) {
	if endpoint == "" {
		endpoint = constants.DefaultDockerSocket
	}
	if timeout <= 0 {
		timeout = constants.DefaultDockerTimeout
	}

	host, err := dockerHost(endpoint)
	if err != nil {
		return nil, err
	}

	c, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithHost(host),
		client.WithTimeout(timeout),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating docker client for %q: %w", endpoint, err)
	}

	return &DockerResolver{client: c, log: logger.OrNop(log)}, nil
}

// dockerHost turns a configured endpoint into a Docker host URL
func dockerHost(endpoint string) (string, error) {
	switch {
	case strings.HasPrefix(endpoint, "tcp://"), strings.HasPrefix(endpoint, "unix://"):
		return endpoint, nil
	case strings.HasPrefix(endpoint, "http://"):
		return "tcp://" + strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), nil
	case strings.HasPrefix(endpoint, "https://"):
		return "", fmt.Errorf("invalid docker endpoint %q: use tcp:// with DOCKER_TLS_VERIFY for TLS", endpoint)
	case strings.HasPrefix(endpoint, "/"):
		return "unix://" + endpoint, nil
	default:
		return "", fmt.Errorf("invalid docker endpoint %q", endpoint)
	}
}

// Resolve returns the container name without its leading slash, or an empty
// string if the container is unknown or the daemon cannot be reached.
func (r *DockerResolver) Resolve(ctx context.Context, ownerID string) string {
	if ownerID == "" {
		return ""
	}

	inspect, err := r.client.ContainerInspect(ctx, ownerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			r.log.Debugw("container not found", "owner_id", ownerID)
		} else {
			r.log.Debugw("container inspect failed", "owner_id", ownerID, "error", err)
		}
		return ""
	}
	if inspect.ContainerJSONBase == nil {
		return ""
	}

	return strings.TrimPrefix(inspect.Name, "/")
}

// Close releases idle connections to the daemon
func (r *DockerResolver) Close() error {
	return r.client.Close()
}
