// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package llmprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/corerouter/pkg/types"
)

func TestEstimateTokens_Empty(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(nil))
}

func TestEstimateTokens_Positive(t *testing.T) {
	n := EstimateTokens([]types.Message{{Role: types.RoleUser, Content: "hello there, friend"}})
	assert.Greater(t, n, 0)
}
