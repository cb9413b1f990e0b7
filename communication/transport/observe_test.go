package transport

import (
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/bassosimone/errclass"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveConnLogsIO(t *testing.T) {
	logger, records := newCapturingLogger()

	mock := newMinimalConn()
	mock.ReadFunc = func(b []byte) (int, error) { return copy(b, "hello"), nil }
	mock.WriteFunc = func(b []byte) (int, error) { return len(b), nil }
	closes := 0
	mock.CloseFunc = func() error { closes++; return nil }

	conn := ObserveConn(mock, logger, "span-1")

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = conn.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Close(), net.ErrClosed)
	assert.Equal(t, 1, closes)

	var messages []string
	for _, r := range records() {
		messages = append(messages, r.Message)
		span, ok := recordAttr(r, "spanID")
		require.True(t, ok)
		assert.Equal(t, "span-1", span.String())
	}
	assert.Equal(t, []string{"readStart", "readDone", "writeStart", "writeDone", "closeDone"}, messages)

	remote, ok := recordAttr(records()[1], "remoteAddr")
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:8888", remote.String())
	count, _ := recordAttr(records()[1], "ioBytesCount")
	assert.Equal(t, int64(5), count.Int64())
}

func TestObserveConnClassifiesErrors(t *testing.T) {
	logger, records := newCapturingLogger()

	mock := newMinimalConn()
	mock.ReadFunc = func(b []byte) (int, error) {
		return 0, &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}
	}

	_, err := ObserveConn(mock, logger, NewSpanID()).Read(make([]byte, 4))
	require.Error(t, err)

	class, ok := recordAttr(records()[1], "errClass")
	require.True(t, ok)
	assert.Equal(t, errclass.ECONNRESET, class.String())
}

func TestNewSpanID(t *testing.T) {
	parsed, err := uuid.Parse(NewSpanID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, NewSpanID(), NewSpanID())
}
