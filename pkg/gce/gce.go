// Package gce implements the Compute Engine calls needed to reset a Windows
// password on top of google.golang.org/api/compute/v1.
package gce

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"
	"k8s.io/klog/v2"

	"github.com/jetstack/winpass/pkg/logs"
	"github.com/jetstack/winpass/pkg/reset"
	"github.com/jetstack/winpass/pkg/version"
)

// Compile-time check that Client implements reset.Compute
var _ reset.Compute = (*Client)(nil)

// Client talks to the Compute Engine API.
type Client struct {
	service *compute.Service
}

// NewClient connects to the Compute Engine API. When credentialsPath is empty,
// Application Default Credentials are used.
func NewClient(ctx context.Context, credentialsPath string) (*Client, error) {
	var credsOpt option.ClientOption
	if len(credentialsPath) == 0 {
		klog.FromContext(ctx).V(logs.Debug).Info("Credentials path was not provided, using Application Default Credentials")
		creds, err := google.FindDefaultCredentials(ctx, compute.ComputeScope)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain credentials for Google Cloud Platform: try to run 'gcloud auth application-default login' to login to your account: %w", err)
		}

		credsOpt = option.WithCredentials(creds)
	} else {
		credsOpt = option.WithCredentialsFile(credentialsPath)
	}

	service, err := compute.NewService(ctx, credsOpt, option.WithUserAgent(version.UserAgent()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Google Cloud Platform compute API: %w", err)
	}

	return New(service), nil
}

// New wraps an existing compute service.
func New(service *compute.Service) *Client {
	return &Client{service: service}
}

// InstanceMetadata returns the metadata of instance, including its fingerprint.
func (c *Client) InstanceMetadata(ctx context.Context, instance reset.Instance) (*compute.Metadata, error) {
	ins, err := c.service.Instances.Get(instance.Project, instance.Zone, instance.Name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get instance (project: %s, zone: %s, instance: %s): %w", instance.Project, instance.Zone, instance.Name, err)
	}

	return ins.Metadata, nil
}

// SetInstanceMetadata replaces the metadata of instance and waits for the
// operation to complete. md must carry the fingerprint it was read with.
func (c *Client) SetInstanceMetadata(ctx context.Context, instance reset.Instance, md *compute.Metadata) error {
	op, err := c.service.Instances.SetMetadata(instance.Project, instance.Zone, instance.Name, md).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to set metadata (project: %s, zone: %s, instance: %s): %w", instance.Project, instance.Zone, instance.Name, err)
	}

	return c.wait(ctx, instance, op)
}

// SerialPortOutput returns the output of port starting at offset start.
func (c *Client) SerialPortOutput(ctx context.Context, instance reset.Instance, port int64, start int64) (*reset.SerialOutput, error) {
	out, err := c.service.Instances.GetSerialPortOutput(instance.Project, instance.Zone, instance.Name).
		Port(port).
		Start(start).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial port %d output (project: %s, zone: %s, instance: %s): %w", port, instance.Project, instance.Zone, instance.Name, err)
	}

	return &reset.SerialOutput{
		Contents: out.Contents,
		Next:     out.Next,
	}, nil
}

// wait blocks until the zone operation is done. ZoneOperations.Wait returns
// early on long operations, so it is called until the status is DONE.
func (c *Client) wait(ctx context.Context, instance reset.Instance, op *compute.Operation) error {
	logger := klog.FromContext(ctx)

	name := op.Name
	for op.Status != "DONE" {
		logger.V(logs.Trace).Info("Waiting for operation", "operation", name, "status", op.Status)

		var err error
		op, err = c.service.ZoneOperations.Wait(instance.Project, instance.Zone, name).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to wait for operation %s: %w", name, err)
		}
	}

	if op.Error != nil && len(op.Error.Errors) > 0 {
		var msgs []string
		for _, e := range op.Error.Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Code, e.Message))
		}
		return fmt.Errorf("operation %s failed: %s", name, strings.Join(msgs, "; "))
	}

	return nil
}
