package environment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	consul "github.com/hashicorp/consul/api"
	"github.com/redis/go-redis/v9"
)

// Probe checks whether the service at a health URL is ready. It returns nil if so; any error
// means "not ready". The context always carries a deadline.
type Probe interface {
	Check(ctx context.Context, healthURL *url.URL) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context, healthURL *url.URL) error

func (f ProbeFunc) Check(ctx context.Context, healthURL *url.URL) error { return f(ctx, healthURL) }

func defaultProbes(client *http.Client) map[string]Probe {
	hp := httpProbe{client: client}
	return map[string]Probe{
		"http":     hp,
		"https":    hp,
		"redis":    ProbeFunc(redisProbe),
		"rediss":   ProbeFunc(redisProbe),
		"consul":   ProbeFunc(consulProbe),
		"dynamodb": ProbeFunc(dynamoDBProbe),
	}
}

// httpProbe treats any 2xx response to a GET as healthy.
type httpProbe struct {
	client *http.Client
}

func (p httpProbe) Check(ctx context.Context, healthURL *url.URL) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL.String(), http.NoBody)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func redisProbe(ctx context.Context, healthURL *url.URL) error {
	opts, err := redis.ParseURL(healthURL.String())
	if err != nil {
		return err
	}
	client := redis.NewClient(opts)
	defer client.Close() //nolint:errcheck
	return client.Ping(ctx).Err()
}

// consulProbe is healthy once the cluster has elected a leader.
func consulProbe(ctx context.Context, healthURL *url.URL) error {
	cfg := consul.DefaultConfig()
	cfg.Address = healthURL.Host
	cfg.Scheme = "http"
	client, err := consul.NewClient(cfg)
	if err != nil {
		return err
	}
	leader, err := client.Status().LeaderWithQueryOptions((&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return err
	}
	if leader == "" {
		return fmt.Errorf("consul at %s has no leader yet", healthURL.Host)
	}
	return nil
}

// dynamoDBProbe targets a local DynamoDB endpoint, so it uses static dummy credentials rather
// than whatever the environment provides.
func dynamoDBProbe(ctx context.Context, healthURL *url.URL) error {
	region := healthURL.Query().Get("region")
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
	if err != nil {
		return err
	}
	endpoint := "http://" + healthURL.Host
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	_, err = client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	return err
}
