package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	names []string
	err   error
	calls int
}

func (s *staticLister) FetchIndex(ctx context.Context) ([]string, error) {
	s.calls++
	return s.names, s.err
}

func TestIndex_EmptyBeforeRefresh(t *testing.T) {
	idx := NewIndex(&staticLister{names: []string{"docker"}})

	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Contains("docker"))
	assert.Empty(t, idx.Filter([]string{"docker", "github"}))
	assert.Equal(t, []string{}, idx.Names())
	assert.True(t, idx.RefreshedAt().IsZero())
}

func TestIndex_RefreshAndFilter(t *testing.T) {
	idx := NewIndex(&staticLister{names: []string{"docker", "github", "gitea", "docker"}})

	n, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"docker", "github", "gitea"}, idx.Names())
	assert.False(t, idx.RefreshedAt().IsZero())

	got := idx.Filter([]string{"gitea", "nope", "docker", "gitea", "", "GitHub"})
	assert.Equal(t, []string{"gitea", "docker", "gitea"}, got)
}

func TestIndex_RefreshFailureKeepsPrevious(t *testing.T) {
	src := &staticLister{names: []string{"docker"}}
	idx := NewIndex(src)
	_, err := idx.Refresh(context.Background())
	require.NoError(t, err)

	src.err = errors.New("boom")
	_, err = idx.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, idx.Contains("docker"))
}

func TestIndex_RefreshFailureAtStartupStaysEmpty(t *testing.T) {
	idx := NewIndex(&staticLister{err: errors.New("offline")})
	_, err := idx.Refresh(context.Background())
	require.ErrorIs(t, err, ErrIndexUnavailable)
	assert.Empty(t, idx.Filter([]string{"docker"}))
}

func TestIndex_OnRefresh(t *testing.T) {
	idx := NewIndex(&staticLister{names: []string{"a", "b"}})
	var got []int
	idx.OnRefresh(func(count int) { got = append(got, count) })

	_, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)
}

func TestIndex_NamesReturnsCopy(t *testing.T) {
	idx := NewIndex(nil)
	idx.Replace([]string{"a", "b"})

	names := idx.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, idx.Names())
}
