package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerPublishes(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"id":"evt-1"}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	p := &Producer{sync: sp}

	err := p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{"id":"evt-1"}`), map[string]string{"content-type": "application/cloudevents+json"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestProducerSurfacesBrokerErrors(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := &Producer{sync: sp}

	err := p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{}`), nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "booking.events.v1" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return int64(len(c.messages)) }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type flakyHandler struct {
	failures map[string]int
	calls    map[string]int
}

func (h *flakyHandler) HandleMessage(_ context.Context, value []byte) error {
	key := string(value)
	h.calls[key]++
	if h.calls[key] <= h.failures[key] {
		return errors.New("archive unavailable")
	}
	return nil
}

func TestConsumeClaimRetriesThenMarks(t *testing.T) {
	msgs := make(chan *sarama.ConsumerMessage, 3)
	msgs <- &sarama.ConsumerMessage{Offset: 0, Value: []byte("a")}
	msgs <- &sarama.ConsumerMessage{Offset: 1, Value: []byte("b")}
	msgs <- &sarama.ConsumerMessage{Offset: 2, Value: []byte("c")}
	close(msgs)

	handler := &flakyHandler{failures: map[string]int{"b": 1, "c": 10}, calls: map[string]int{}}
	h := newConsumerGroupHandler(handler, ConsumerOptions{Attempts: 3, Backoff: time.Millisecond})
	sess := &fakeSession{ctx: context.Background()}

	require.NoError(t, h.ConsumeClaim(sess, &fakeClaim{messages: msgs}))
	assert.Equal(t, []int64{0, 1, 2}, sess.marked)
	assert.Equal(t, 1, handler.calls["a"])
	assert.Equal(t, 2, handler.calls["b"])
	assert.Equal(t, 3, handler.calls["c"])
}

func TestConsumeClaimStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newConsumerGroupHandler(&flakyHandler{failures: map[string]int{}, calls: map[string]int{}}, ConsumerOptions{})
	sess := &fakeSession{ctx: ctx}

	require.NoError(t, h.ConsumeClaim(sess, &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}))
	assert.Empty(t, sess.marked)
}
