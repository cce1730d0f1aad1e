// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package terraform

import (
	"context"
	"fmt"
)

// BackendConfig locates the remote state of one customer/environment pair.
type BackendConfig struct {
	ResourceGroup  string
	StorageAccount string
	Container      string
	Key            string
}

// StateKey is the blob holding the state of a customer/environment pair.
func StateKey(customer string, environment string) string {
	return fmt.Sprintf("%s-%s.tfstate", customer, environment)
}

// Args returns the -backend-config flags passed to terraform init.
func (b BackendConfig) Args() []string {
	args := []string{
		fmt.Sprintf("-backend-config=storage_account_name=%s", b.StorageAccount),
		fmt.Sprintf("-backend-config=container_name=%s", b.Container),
		fmt.Sprintf("-backend-config=key=%s", b.Key),
	}

	if b.ResourceGroup != "" {
		args = append(args, fmt.Sprintf("-backend-config=resource_group_name=%s", b.ResourceGroup))
	}

	return args
}

// StateContainers creates the blob container holding remote state.
type StateContainers interface {
	// EnsureContainer creates the container, treating an existing container as success.
	EnsureContainer(ctx context.Context, storageAccount string, container string) error
}
