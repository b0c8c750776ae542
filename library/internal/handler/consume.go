package handler

import (
	"github.com/Astemirdum/library-cms/pkg/notify"
	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Consumer delivers notifications published to the notification topic.
// Every message is marked once handled: a failed delivery is logged and
// never retried.
type Consumer struct {
	deliver notify.Deliver
	log     *zap.Logger
}

func NewConsumer(deliver notify.Deliver, log *zap.Logger) *Consumer {
	return &Consumer{
		deliver: deliver,
		log:     log.Named("consumer"),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			msg, err := notify.Decode(message.Value)
			if err != nil {
				consumer.log.Error("notify.Decode", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}
			if err := consumer.deliver(session.Context(), msg); err != nil {
				consumer.log.Error("consumer.deliver", zap.String("to", msg.To), zap.Error(err))
			} else {
				consumer.log.Debug("Message claimed:", zap.String("to", msg.To), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
