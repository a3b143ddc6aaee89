// Package call provisions real-time video calls with an external provider.
package call

import (
	"context"
	"time"
)

// Metadata is echoed to the provider as the call's custom data.
type Metadata struct {
	Description       string `json:"description"`
	AdditionalDetails string `json:"additionalDetails"`
}

// Handle references a provisioned call. Created is false when the
// provider returned an existing call for the id.
type Handle struct {
	ID       string
	StartsAt time.Time
	Metadata Metadata
	Created  bool
}

// Provisioner gets or creates the call identified by id.
// A call that already exists is returned unchanged.
type Provisioner interface {
	Provision(ctx context.Context, id string, startsAt time.Time, meta Metadata) (*Handle, error)
}
