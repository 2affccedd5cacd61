/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRequestOffset(t *testing.T) {
	p := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, 10, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())

	p = NewDefaultPageRequest(3, 5).WithSkip(2)
	assert.Equal(t, 12, p.GetOffset())
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, size, skip, want int
	}{
		{0, 10, 0, 0},
		{10, 10, 0, 1},
		{11, 10, 0, 2},
		{11, 10, 1, 1},
		{3, 10, 5, 0},
		{7, 0, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageCount(tt.total, tt.size, tt.skip), "total=%d size=%d skip=%d", tt.total, tt.size, tt.skip)
	}

	p := &Pagination[int]{PageSize: 4, Skip: 1, Total: 9}
	assert.Equal(t, 2, p.Pages())
}

func TestStringMapScan(t *testing.T) {
	var m StringMap
	require.NoError(t, m.Scan(`{"en":"Home","nl":"Thuis"}`))
	assert.Equal(t, "Thuis", m["nl"])
	assert.Equal(t, []string{"en", "nl"}, m.Keys())

	require.NoError(t, m.Scan([]byte(`{"a":"b"}`)))
	assert.Equal(t, StringMap{"a": "b"}, m)

	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	assert.Error(t, m.Scan(42))

	v, err := StringMap{"k": "v"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, v)

	v, err = StringMap(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}
