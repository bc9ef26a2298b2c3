// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package frameworks

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReasonSetDedupes(t *testing.T) {
	s := NewReasonSet()
	require.True(t, s.Empty())

	s.Add("middleware")
	s.Add("middleware")
	s.Add("non-static routes")

	require.False(t, s.Empty())
	require.Equal(t, []string{"middleware", "non-static routes"}, s.List())
}

func TestDescribeShowsAllWhenFew(t *testing.T) {
	s := NewReasonSet()
	s.Add("middleware")
	s.Add("Image Optimization")

	described := s.Describe()
	require.Contains(t, described, " • middleware\n")
	require.Contains(t, described, " • Image Optimization\n")
	require.NotContains(t, described, "other reasons")
}

func TestDescribeTruncatesLongList(t *testing.T) {
	s := NewReasonSet()
	for i := 0; i < maxDisplayedReasons+3; i++ {
		s.Add(fmt.Sprintf("use of revalidate /products/%d", i))
	}

	described := s.Describe()
	require.Equal(t, maxDisplayedReasons+1, strings.Count(described, " • "))
	require.Contains(t, described, "and 3 other reasons, use --debug to see more")

	// Truncation is display only.
	require.Len(t, s.List(), maxDisplayedReasons+3)
}

func TestDescribeEmpty(t *testing.T) {
	require.Empty(t, NewReasonSet().Describe())
}
