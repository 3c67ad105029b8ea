package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/floorops-backend/pkg/config"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("no pubsub topics configured")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns one Pub/Sub connection and a publisher per topic. Publishers
// are created lazily and live until Close.
type Client struct {
	client    *pubsub.Client
	projectID string
	topics    []string
	settings  pubsub.PublishSettings

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient fails when a configured topic is missing; topics are provisioned
// out of band.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	sdk, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	c := &Client{
		client:     sdk,
		projectID:  projectID,
		topics:     topicNames(cfg),
		settings:   publishSettings(cfg),
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = sdk.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topics", c.topics), "pubsub.connected")
	}
	return c, nil
}

// clientOptions prefers inline JSON over a key file. With neither the SDK uses
// ADC, and PUBSUB_EMULATOR_HOST overrides both.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func publishSettings(cfg config.PubSubConfig) pubsub.PublishSettings {
	settings := pubsub.DefaultPublishSettings
	if cfg.PublishDelay > 0 {
		settings.DelayThreshold = cfg.PublishDelay
	}
	return settings
}

func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, name := range []string{cfg.OrdersTopic, cfg.PaymentsTopic} {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Ping looks up every configured topic in parallel.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	if len(c.topics) == 0 {
		return errNoTopics
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range c.topics {
		g.Go(func() error { return c.topicExists(gctx, name) })
	}
	return g.Wait()
}

func (c *Client) topicExists(ctx context.Context, name string) error {
	req := &pubsubpb.GetTopicRequest{Topic: c.topicResourceName(name)}
	if _, err := c.client.TopicAdminClient.GetTopic(ctx, req); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("pubsub topic %q does not exist", name)
		}
		return fmt.Errorf("pubsub topic %q: %w", name, err)
	}
	return nil
}

// Publisher accepts a short topic id or a full resource name. Publishers have
// message ordering enabled because outbox events are keyed by order id.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	resource := c.topicResourceName(name)
	if resource == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[resource]
	if !ok {
		pub = c.client.Publisher(resource)
		pub.PublishSettings = c.settings
		pub.EnableMessageOrdering = true
		c.publishers[resource] = pub
	}
	return pub
}

// Close flushes pending messages before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, pub := range c.publishers {
		pub.Stop()
	}
	clear(c.publishers)
	c.mu.Unlock()
	return c.client.Close()
}

func (c *Client) topicResourceName(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case c == nil || name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case c.projectID == "":
		return ""
	}
	return "projects/" + c.projectID + "/topics/" + name
}
