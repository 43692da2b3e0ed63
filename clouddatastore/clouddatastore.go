// Package clouddatastore is the Cloud Datastore backend. It adapts the
// official cloud.google.com/go/datastore client to the backend-neutral
// Client contract, converting keys, property lists and errors at the
// boundary. Entities written through it stay readable by any other
// Cloud Datastore tooling.
//
// With WithEmulator, or DATASTORE_EMULATOR_HOST set, calls go to a
// local emulator over an insecure connection and without credentials.
// The contract suite in this package runs that way.
package clouddatastore

import (
	"context"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.kotori.dev/arbor"
	"go.kotori.dev/arbor/internal"
)

var _ arbor.ClientGenerator = New

var projectID *string

func newClientSettings(ctx context.Context, opts ...arbor.ClientOption) *internal.ClientSettings {
	if projectID == nil {
		pID, err := metadata.ProjectIDWithContext(ctx)
		if err != nil {
			// A failed probe is cached too. Runs outside the platform
			// would repeat it on every New otherwise.
			pID = internal.GetProjectID()
		}
		projectID = &pID
	}
	settings := &internal.ClientSettings{
		ProjectID: *projectID,
	}
	for _, opt := range opts {
		opt.Apply(settings)
	}
	if settings.EmulatorHost == "" {
		settings.EmulatorHost = internal.GetEmulatorHost()
	}
	return settings
}

// New returns a Client backed by Cloud Datastore. The project id comes
// from the options, the metadata service, or the ARBOR_PROJECT_ID and
// PROJECT_ID environment variables, in that order.
func New(ctx context.Context, opts ...arbor.ClientOption) (arbor.Client, error) {
	settings := newClientSettings(ctx, opts...)

	var origOpts []option.ClientOption
	if settings.EmulatorHost != "" {
		// The emulator ignores credentials.
		if settings.ProjectID == "" {
			settings.ProjectID = "arbor-local"
		}
		origOpts = append(origOpts,
			option.WithEndpoint(settings.EmulatorHost),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	} else {
		if len(settings.Scopes) != 0 {
			origOpts = append(origOpts, option.WithScopes(settings.Scopes...))
		}
		if settings.TokenSource != nil {
			origOpts = append(origOpts, option.WithTokenSource(settings.TokenSource))
		}
		if settings.CredentialsFile != "" {
			origOpts = append(origOpts, option.WithCredentialsFile(settings.CredentialsFile))
		}
		if settings.HTTPClient != nil {
			origOpts = append(origOpts, option.WithHTTPClient(settings.HTTPClient))
		}
	}

	client, err := datastore.NewClient(ctx, settings.ProjectID, origOpts...)
	if err != nil {
		return nil, err
	}

	return &datastoreImpl{client: client, namespace: settings.Namespace}, nil
}
