// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"love-coach-go/internal/config"
	"love-coach-go/pkg/log"
	"love-coach-go/pkg/tasks"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.PipelineTask) error
}

// Producer 负责向 Kafka 投递提示链任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(cfg.Brokers)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// PublishPipelineTask 发送一个提示链任务。以 target_id 作为 key，同一 Target 的任务落在同一分区并保持顺序。
func (p *Producer) PublishPipelineTask(ctx context.Context, task tasks.PipelineTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", task.TargetID)),
		Value: taskBytes,
	})
}

// Close 刷新并关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// messageReader 是 consumer 使用的 kafka.Reader 子集。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer 从 Kafka 读取提示链任务并交给 TaskProcessor 处理。
type Consumer struct {
	reader      messageReader
	processor   TaskProcessor
	rdb         *redis.Client
	maxAttempts int64
	backoff     time.Duration
	// rdb 为 nil 时在进程内计数
	localAttempts map[string]int64
}

// NewConsumer 创建一个消费者。rdb 用于记录失败次数，可以为 nil。
func NewConsumer(cfg config.KafkaConfig, processor TaskProcessor, rdb *redis.Client) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  splitBrokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,    // 任务消息很小，不等待攒批
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(r, processor, rdb, cfg.MaxAttempts)
}

func newConsumer(reader messageReader, processor TaskProcessor, rdb *redis.Client, maxAttempts int) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Consumer{
		reader:        reader,
		processor:     processor,
		rdb:           rdb,
		maxAttempts:   int64(maxAttempts),
		backoff:       2 * time.Second,
		localAttempts: make(map[string]int64),
	}
}

// Run 持续消费直到 ctx 结束或读取出错，返回前关闭 reader。
func (c *Consumer) Run(ctx context.Context) {
	log.Info("Kafka 消费者已启动")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}
		c.handle(ctx, m)
		if ctx.Err() != nil {
			break
		}
	}

	if err := c.reader.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
	log.Info("Kafka 消费者已停止")
}

// handle 处理单条消息：成功或达到最大尝试次数后提交 offset，否则退避后原地重试。
func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	log.Infof("收到 Kafka 消息: partition %d, offset %d", m.Partition, m.Offset)

	var task tasks.PipelineTask
	if err := json.Unmarshal(m.Value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞队列
		c.commit(ctx, m)
		return
	}

	attemptsKey := fmt.Sprintf("kafka:attempts:%s:%d:%d", m.Topic, m.Partition, m.Offset)
	for {
		attempts, err := c.incrAttempts(ctx, attemptsKey)
		if err != nil {
			// Redis 异常时保守处理：不提交 offset，消费者重启后重新投递
			log.Errorf("记录任务尝试次数失败: targetID=%d, error: %v", task.TargetID, err)
			return
		}

		err = c.processor.Process(ctx, task)
		if err == nil {
			log.Infof("提示链任务处理成功: targetID=%d, analysisID=%d", task.TargetID, task.AnalysisID)
			c.clearAttempts(ctx, attemptsKey)
			c.commit(ctx, m)
			return
		}

		log.Errorf("处理提示链任务失败: targetID=%d, attempt=%d, error: %v", task.TargetID, attempts, err)
		if attempts >= c.maxAttempts {
			log.Errorf("提示链任务多次失败(>=%d)，提交 offset 终止重试: targetID=%d", c.maxAttempts, task.TargetID)
			c.clearAttempts(ctx, attemptsKey)
			c.commit(ctx, m)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff):
		}
	}
}

func (c *Consumer) incrAttempts(ctx context.Context, key string) (int64, error) {
	if c.rdb == nil {
		c.localAttempts[key]++
		return c.localAttempts[key], nil
	}
	attempts, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Expire(ctx, key, 24*time.Hour).Err()
	return attempts, nil
}

func (c *Consumer) clearAttempts(ctx context.Context, key string) {
	if c.rdb == nil {
		delete(c.localAttempts, key)
		return
	}
	_ = c.rdb.Del(ctx, key).Err()
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
