package handler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Astemirdum/library-cms/pkg/mailer"
	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type session struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *session) Claims() map[string][]int32 { return nil }
func (s *session) MemberID() string { return "test" }
func (s *session) GenerationID() int32 { return 1 }
func (s *session) MarkOffset(string, int32, int64, string) {}
func (s *session) Commit() {}
func (s *session) ResetOffset(string, int32, int64, string) {}
func (s *session) Context() context.Context { return s.ctx }
func (s *session) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type claim struct {
	ch chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string { return "library.notifications" }
func (c *claim) Partition() int32 { return 0 }
func (c *claim) InitialOffset() int64 { return 0 }
func (c *claim) HighWaterMarkOffset() int64 { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func TestConsumer_ConsumeClaim(t *testing.T) {
	var delivered []string
	deliver := func(_ context.Context, msg mailer.Message) error {
		delivered = append(delivered, msg.To)
		if msg.To == "broken@local" {
			return errors.New("mailbox unavailable")
		}
		return nil
	}

	c := &claim{ch: make(chan *sarama.ConsumerMessage, 3)}
	c.ch <- &sarama.ConsumerMessage{Offset: 1, Value: []byte(`{"to":"a@local","subject":"s","text":"t"}`)}
	c.ch <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`not json`)}
	c.ch <- &sarama.ConsumerMessage{Offset: 3, Value: []byte(`{"to":"broken@local","subject":"s","text":"t"}`)}
	close(c.ch)

	s := &session{ctx: context.Background()}
	require.NoError(t, NewConsumer(deliver, zap.NewNop()).ConsumeClaim(s, c))

	require.Equal(t, []string{"a@local", "broken@local"}, delivered)
	require.Equal(t, []int64{1, 2, 3}, s.marked)
}
