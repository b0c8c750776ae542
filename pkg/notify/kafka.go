package notify

import (
	"context"
	"sync"

	"github.com/Astemirdum/library-cms/pkg/mailer"
	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KafkaNotifier publishes messages to a topic; a consumer group delivers them.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	wg       sync.WaitGroup
	log      *zap.Logger
}

func NewKafkaNotifier(producer sarama.SyncProducer, topic string, log *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		topic:    topic,
		log:      log.Named("notify"),
	}
}

func (k *KafkaNotifier) Notify(_ context.Context, msg mailer.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		k.log.Error("json.Marshal", zap.Error(err))
		return
	}
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		pm := &sarama.ProducerMessage{
			Topic: k.topic,
			Key:   sarama.StringEncoder(msg.To),
			Value: sarama.ByteEncoder(data),
		}
		if _, _, err := k.producer.SendMessage(pm); err != nil {
			k.log.Error("producer.SendMessage", zap.String("to", msg.To), zap.Error(err))
		}
	}()
}

// Close waits for in-flight publishes and closes the producer.
func (k *KafkaNotifier) Close() error {
	k.wg.Wait()
	return k.producer.Close()
}

func Decode(data []byte) (mailer.Message, error) {
	var msg mailer.Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}
