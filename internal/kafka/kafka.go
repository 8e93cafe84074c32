// Package kafka provides methods for initiating kafka-topics for the app and a kafka readiness-probing
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

// InitKafkaTopics - creates topics in kafka, existing topics are fine
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{Topics: topicConfigs(topics)}

	for {
		resp, err := client.CreateTopics(ctx, &req)
		if err == nil {
			failed := 0
			for k, v := range resp.Errors {
				if v != nil && !errors.Is(v, kafkago.TopicAlreadyExists) {
					zlog.Logger.Error().Err(v).Str("topic", k).Msg("Topic creation error")
					failed++
				}
			}
			if failed == 0 {
				zlog.Logger.Info().Strs("topics", topics).Msg("All topics created successfully!")
				return nil
			}
		} else {
			zlog.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("Failed to run topics creation request")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("topics creation canceled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}

// topicConfigs - single partition topics, the exporter is one consumer group member per process
func topicConfigs(topics []string) []kafkago.TopicConfig {
	res := make([]kafkago.TopicConfig, 0, len(topics))
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		res = append(res, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return res
}

// WaitKafkaReady - timeout given to kafka-service for getting fully functional
func WaitKafkaReady(ctx context.Context, brokerAddr string, delay time.Duration) error {
	for {
		conn, err := kafkago.DialContext(ctx, "tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				zlog.Logger.Warn().Err(errConn).Msg("Failed to close connection after testing Kafka readyness")
			}
			zlog.Logger.Info().Str("broker", brokerAddr).Msg("Kafka is ready!")
			return nil
		}

		zlog.Logger.Info().Dur("retry_in", delay).Msg("Kafka not ready, retrying...")
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka is unreachable: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}
