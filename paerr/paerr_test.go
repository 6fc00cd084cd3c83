/*
 * This file is part of pabridge (https://github.com/soundwire/pabridge).
 * Copyright (C) 2026 Soundwire Audio
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package paerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFromCode tests the code-to-error conversion.
func TestFromCode(t *testing.T) {
	t.Run("ok_is_nil", func(t *testing.T) {
		assert.NoError(t, FromCode(CodeOK), "CodeOK should convert to a nil error")
	})

	t.Run("failure_carries_code", func(t *testing.T) {
		err := FromCode(CodeNoEntity)
		require.Error(t, err, "a failure code should convert to an error")

		code, ok := AsCode(err)
		require.True(t, ok, "the code should be recoverable from the error")
		assert.Equal(t, CodeNoEntity, code)
	})

	t.Run("code_survives_wrapping", func(t *testing.T) {
		err := fmt.Errorf("play sample: %w", FromCode(CodeAccess))

		code, ok := AsCode(err)
		require.True(t, ok, "the code should be recoverable through wrapping")
		assert.Equal(t, CodeAccess, code)
	})

	t.Run("no_code_in_plain_error", func(t *testing.T) {
		code, ok := AsCode(errors.New("something else"))
		assert.False(t, ok, "a plain error should carry no native code")
		assert.Equal(t, CodeOK, code)
	})
}

// TestCodeString tests the human-readable code descriptions.
func TestCodeString(t *testing.T) {
	assert.Equal(t, "no such entity", CodeNoEntity.String())
	assert.Equal(t, "entity killed", CodeKilled.String())
	assert.Equal(t, "ok", CodeOK.String())
	assert.Contains(t, Code(999).String(), "unknown error code 999")
}

// TestRegistration tests the registration rejection wrapper.
func TestRegistration(t *testing.T) {
	t.Run("matches_sentinel", func(t *testing.T) {
		err := Registration(errors.New("binding said no"))
		assert.ErrorIs(t, err, ErrRegistration)
		assert.Contains(t, err.Error(), "binding said no")
	})

	t.Run("keeps_cause_chain", func(t *testing.T) {
		err := Registration(fmt.Errorf("play while failed: %w", ErrNotConnected))
		assert.ErrorIs(t, err, ErrRegistration)
		assert.ErrorIs(t, err, ErrNotConnected, "the original cause should stay matchable")
	})
}

// TestSentinelsAreDistinct tests that the bridge-side sentinels never
// match a native failure code or each other.
func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrCancelled, ErrRegistration, ErrNotConnected, ErrBridgeInternal}
	for _, s := range sentinels {
		_, ok := AsCode(s)
		assert.False(t, ok, "sentinel %v should not carry a native code", s)
	}
	assert.NotErrorIs(t, ErrCancelled, ErrRegistration)
	assert.NotErrorIs(t, FromCode(CodeKilled), ErrCancelled)
}
