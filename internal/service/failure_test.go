package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"love-coach-go/pkg/lock"

	"gorm.io/gorm"
)

// failInsertsInto 让指定表的所有 INSERT 失败，其余表不受影响。
func failInsertsInto(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	name := "test:fail_insert_" + table
	err := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(fmt.Errorf("insert into %s: disk full", table))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

type busyLocker struct{}

func (busyLocker) Lock(_ context.Context, key string) (func(), error) {
	return nil, fmt.Errorf("%w: %s", lock.ErrBusy, key)
}

func TestSubmitConversation_StorageFailureRollsBack(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	alex := env.createTarget(t, "Alex")
	failInsertsInto(t, env.db, "love_analyses")

	_, err := env.coach.SubmitConversation(context.Background(), alex.ID, "hi there")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err=%v, want ErrStorage", err)
	}
	if MapHTTPStatus(err) != 500 {
		t.Fatalf("status=%d, want 500", MapHTTPStatus(err))
	}
	// 片段与分析在同一事务中，分析写入失败时片段也必须回滚
	env.assertCounts(t, 0, 0, 0, 0)
	if n := len(env.indexer.docs); n != 0 {
		t.Fatalf("indexed docs=%d, want 0", n)
	}
	if n := len(env.publisher.tasks); n != 0 {
		t.Fatalf("published tasks=%d, want 0", n)
	}
}

func TestGenerateChatStrategy_StorageFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	alex := env.createTarget(t, "Alex")
	if _, err := env.coach.SubmitConversation(context.Background(), alex.ID, "hi there"); err != nil {
		t.Fatalf("SubmitConversation: %v", err)
	}
	failInsertsInto(t, env.db, "chat_strategies")

	_, err := env.coach.GenerateChatStrategy(context.Background(), alex.ID)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err=%v, want ErrStorage", err)
	}
	env.assertCounts(t, 1, 1, 0, 0)
}

func TestGenerateReplyOptions_StorageFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	alex := env.createTarget(t, "Alex")
	failInsertsInto(t, env.db, "reply_options_flows")

	_, err := env.coach.GenerateReplyOptions(context.Background(), alex.ID)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err=%v, want ErrStorage", err)
	}
	env.assertCounts(t, 0, 0, 0, 0)
}

func TestGenerateChatStrategy_UpstreamFailureWritesNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	alex := env.createTarget(t, "Alex")
	if _, err := env.coach.SubmitConversation(context.Background(), alex.ID, "hi there"); err != nil {
		t.Fatalf("SubmitConversation: %v", err)
	}
	env.llm.structErr = errors.New("connection reset")

	_, err := env.coach.GenerateChatStrategy(context.Background(), alex.ID)
	if !errors.Is(err, ErrUpstreamGeneration) || MapHTTPStatus(err) != 500 {
		t.Fatalf("err=%v, want ErrUpstreamGeneration/500", err)
	}
	env.assertCounts(t, 1, 1, 0, 0)
}

func TestStages_TargetBusy(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	alex := env.createTarget(t, "Alex")
	coach := NewCoachService(env.repos, env.llm, busyLocker{}, defaultPipelineConfig(), "gpt-4o", env.indexer, env.publisher)

	stages := map[string]func() error{
		"submit": func() error {
			_, err := coach.SubmitConversation(context.Background(), alex.ID, "hi there")
			return err
		},
		"strategy": func() error {
			_, err := coach.GenerateChatStrategy(context.Background(), alex.ID)
			return err
		},
		"reply options": func() error {
			_, err := coach.GenerateReplyOptions(context.Background(), alex.ID)
			return err
		},
	}
	for name, run := range stages {
		err := run()
		if !errors.Is(err, ErrStorage) || !errors.Is(err, lock.ErrBusy) {
			t.Fatalf("%s: err=%v, want ErrStorage wrapping lock.ErrBusy", name, err)
		}
		if MapHTTPStatus(err) != 500 || PublicMessage(err) != "target is busy" {
			t.Fatalf("%s: status=%d message=%q", name, MapHTTPStatus(err), PublicMessage(err))
		}
	}
	if n := env.llm.callCount(); n != 0 {
		t.Fatalf("llm calls=%d, want 0", n)
	}
	env.assertCounts(t, 0, 0, 0, 0)
}
