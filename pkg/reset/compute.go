package reset

import (
	"context"
	"fmt"

	compute "google.golang.org/api/compute/v1"
)

// Instance identifies a Compute Engine instance.
type Instance struct {
	Project string
	Zone    string
	Name    string
}

func (i Instance) String() string {
	return fmt.Sprintf("projects/%s/zones/%s/instances/%s", i.Project, i.Zone, i.Name)
}

// SerialOutput is a chunk of serial port output.
type SerialOutput struct {
	Contents string
	// Next is the offset to pass as start to read only newer output.
	Next int64
}

// Compute is the part of the Compute Engine API used during a reset.
type Compute interface {
	// InstanceMetadata returns the current metadata of the instance.
	InstanceMetadata(ctx context.Context, instance Instance) (*compute.Metadata, error)
	// SetInstanceMetadata replaces the metadata of the instance and returns once
	// the change has been applied.
	SetInstanceMetadata(ctx context.Context, instance Instance, md *compute.Metadata) error
	// SerialPortOutput returns the output of port from offset start onwards.
	SerialPortOutput(ctx context.Context, instance Instance, port int64, start int64) (*SerialOutput, error)
}
