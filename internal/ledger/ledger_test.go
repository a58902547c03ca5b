package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	leads []funnel.Lead
	err   error
}

func (r *recorder) Append(_ context.Context, lead funnel.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.leads = append(r.leads, lead)
	return nil
}

func TestFanout_WritesEverywhere(t *testing.T) {
	t.Parallel()

	primary, mirror := &recorder{}, &recorder{}
	f := NewFanout(primary, mirror, nil)

	require.NoError(t, f.Append(context.Background(), funnel.Lead{Contact: "5581"}))
	assert.Len(t, primary.leads, 1)
	assert.Len(t, mirror.leads, 1)
}

func TestFanout_PrimaryFailureFails(t *testing.T) {
	t.Parallel()

	mirror := &recorder{}
	f := NewFanout(&recorder{err: errors.New("sheets down")}, mirror)

	err := f.Append(context.Background(), funnel.Lead{Contact: "5581"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheets down")
	assert.Len(t, mirror.leads, 1)
}

func TestFanout_MirrorFailureIsTolerated(t *testing.T) {
	t.Parallel()

	primary := &recorder{}
	f := NewFanout(primary, &recorder{err: errors.New("disk full")})

	require.NoError(t, f.Append(context.Background(), funnel.Lead{Contact: "5581"}))
	assert.Len(t, primary.leads, 1)
}
