package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"video-insight/config"
)

// EnsureTopics는 기본 토픽, 모든 재시도 토픽, DLQ 토픽을 생성합니다.
// 이미 존재하는 토픽에 대해서는 성공으로 간주합니다.
// 복제 수는 KAFKA_REPLICATION_FACTOR (기본 1) 로 조정합니다.
func EnsureTopics(brokers string, topic Topic, basePartitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("AdminClient 생성 실패: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	specs := topicSpecs(topic, basePartitions, envInt("KAFKA_REPLICATION_FACTOR", 1))
	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return fmt.Errorf("토픽 생성 요청 실패: %w", err)
	}

	created := 0
	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError:
			created++
		case kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("토픽 %s 생성 실패: %v", r.Topic, r.Error)
		}
	}
	config.Logger.Infof("토픽 확인 완료: %s (신규 %d / 전체 %d)", topic.Base(), created, len(specs))
	return nil
}

// topicSpecs: 기본/재시도 토픽은 같은 파티션 수, DLQ 는 1 파티션.
func topicSpecs(topic Topic, basePartitions, replication int) []kafka.TopicSpecification {
	if basePartitions <= 0 {
		basePartitions = 1
	}
	specs := make([]kafka.TopicSpecification, 0, 2+len(RetryDelays))
	specs = append(specs,
		kafka.TopicSpecification{Topic: topic.Base(), NumPartitions: basePartitions, ReplicationFactor: replication},
		kafka.TopicSpecification{Topic: topic.DLQ(), NumPartitions: 1, ReplicationFactor: replication},
	)
	for _, retryTopic := range topic.GetRetryTopics() {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             retryTopic,
			NumPartitions:     basePartitions,
			ReplicationFactor: replication,
		})
	}
	return specs
}
