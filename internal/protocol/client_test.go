// internal/protocol/client_test.go
package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"heatpump-collector/internal/model"
)

// fakeTransport scripts transport behavior per call
type fakeTransport struct {
	connectErr   error
	connectCalls int
	closeCalls   int

	readCalls int
	// readFn decides each read's outcome based on the call index (1-based)
	readFn func(call int) ([]byte, error)
}

func (f *fakeTransport) Connect() error {
	f.connectCalls++
	return f.connectErr
}

func (f *fakeTransport) Close() error {
	f.closeCalls++
	return nil
}

func (f *fakeTransport) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	f.readCalls++
	return f.readFn(f.readCalls)
}

func (f *fakeTransport) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	f.readCalls++
	return f.readFn(f.readCalls)
}

func newTestClient(ft *fakeTransport, retries int) *Client {
	cfg := &model.ConnectionConfig{Retries: retries, RetryDelaySeconds: 0}
	return NewClient(ft, cfg, zap.NewNop())
}

func TestClientConnectIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(ft, 0)

	require.NoError(t, c.Connect())
	require.NoError(t, c.Connect())

	assert.Equal(t, 1, ft.connectCalls)
	assert.Equal(t, StateConnected, c.State())
}

func TestClientConnectFailure(t *testing.T) {
	ft := &fakeTransport{connectErr: errors.New("dial refused")}
	c := newTestClient(ft, 0)

	err := c.Connect()
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, c.State())
	assert.Error(t, c.LastError())
}

func TestClientDisconnectIdempotent(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(ft, 0)

	require.NoError(t, c.Connect())
	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())

	assert.Equal(t, 1, ft.closeCalls)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientReadWordsSuccess(t *testing.T) {
	ft := &fakeTransport{
		readFn: func(int) ([]byte, error) {
			return []byte{0x00, 0xFA}, nil
		},
	}
	c := newTestClient(ft, 2)

	require.NoError(t, c.Connect())
	words, err := c.ReadWords(model.RegisterKindHolding, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{250}, words)
	assert.Equal(t, StateConnected, c.State())
}

func TestClientReadRetriesThenSucceeds(t *testing.T) {
	ft := &fakeTransport{
		readFn: func(call int) ([]byte, error) {
			if call < 3 {
				return nil, errors.New("timeout")
			}
			return []byte{0x00, 0x01}, nil
		},
	}
	c := newTestClient(ft, 2)
	require.NoError(t, c.Connect())

	words, err := c.ReadWords(model.RegisterKindInput, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1}, words)
	assert.Equal(t, 3, ft.readCalls)
	// each failed attempt forces a reconnect before the next read
	assert.Equal(t, 3, ft.connectCalls)
	assert.Equal(t, StateConnected, c.State())
}

func TestClientReadExhaustsAttempts(t *testing.T) {
	ft := &fakeTransport{
		readFn: func(int) ([]byte, error) {
			return nil, errors.New("timeout")
		},
	}
	c := newTestClient(ft, 2)
	require.NoError(t, c.Connect())

	_, err := c.ReadWords(model.RegisterKindHolding, 0, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadFailed)
	// retries=2 means exactly 3 attempts
	assert.Equal(t, 3, ft.readCalls)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientReadReconnectsWhenDisconnected(t *testing.T) {
	ft := &fakeTransport{
		readFn: func(int) ([]byte, error) {
			return []byte{0x12, 0x34}, nil
		},
	}
	c := newTestClient(ft, 0)

	// never explicitly connected: the read connects on demand
	words, err := c.ReadWords(model.RegisterKindHolding, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x1234}, words)
	assert.Equal(t, 1, ft.connectCalls)
}

func TestClientShortReadFails(t *testing.T) {
	ft := &fakeTransport{
		readFn: func(int) ([]byte, error) {
			return []byte{0x00, 0x01}, nil
		},
	}
	c := newTestClient(ft, 0)
	require.NoError(t, c.Connect())

	_, err := c.ReadWords(model.RegisterKindHolding, 0, 2)
	assert.ErrorIs(t, err, ErrReadFailed)
}

func TestClientInvalidKind(t *testing.T) {
	ft := &fakeTransport{
		readFn: func(int) ([]byte, error) {
			return []byte{0x00, 0x01}, nil
		},
	}
	c := newTestClient(ft, 0)
	require.NoError(t, c.Connect())

	_, err := c.ReadWords(model.RegisterKind("coil"), 0, 1)
	require.Error(t, err)
}

func TestBackoffDelay(t *testing.T) {
	base := 100
	assert.Equal(t, int64(base), int64(backoffDelay(100, 0)))
	assert.Equal(t, int64(base*2), int64(backoffDelay(100, 1)))
	assert.Equal(t, int64(base*4), int64(backoffDelay(100, 2)))
}
