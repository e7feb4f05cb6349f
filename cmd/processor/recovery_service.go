package main

import (
	"context"

	"github.com/robfig/cron/v3"

	"video-insight/config"
)

type staleSweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

// RecoveryService 는 processing 상태로 멈춘 레코드를 주기적으로 failed 로 돌린다.
// 워커가 실행 도중 죽은 경우 재요청이 가능해진다.
type RecoveryService struct {
	sweeper  staleSweeper
	schedule string
	cron     *cron.Cron
}

func NewRecoveryService(sweeper staleSweeper, schedule string) *RecoveryService {
	return &RecoveryService{
		sweeper:  sweeper,
		schedule: schedule,
		// 이전 sweep 이 끝나지 않았으면 건너뛴다.
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Start 는 시작 직후 한 번 sweep 하고 ctx 가 끝날 때까지 스케줄대로 반복한다.
func (s *RecoveryService) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return err
	}
	s.RunOnce(ctx)

	config.Logger.Infof("recovery sweeper started (schedule=%s)", s.schedule)
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	config.Logger.Info("recovery sweeper stopped")
	return ctx.Err()
}

func (s *RecoveryService) RunOnce(ctx context.Context) {
	n, err := s.sweeper.SweepStale(ctx)
	if err != nil {
		config.Logger.Errorf("recovery sweep failed: %v", err)
		return
	}
	if n > 0 {
		config.InfoWithFields("recovery sweep marked stale records failed", config.Fields{"count": n})
	}
}
