package eventbus

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"video-insight/config"
)

// GetBrokers returns Kafka bootstrap servers from env KAFKA_BOOTSTRAP_SERVERS.
func GetBrokers() (string, error) {
	v := strings.TrimSpace(os.Getenv("KAFKA_BOOTSTRAP_SERVERS"))
	if v == "" {
		return "", errors.New("KAFKA_BOOTSTRAP_SERVERS environment variable is required")
	}
	return v, nil
}

// GetGroupID returns the consumer group id from env KAFKA_GROUP_ID, or def.
func GetGroupID(def string) string {
	if v := strings.TrimSpace(os.Getenv("KAFKA_GROUP_ID")); v != "" {
		return v
	}
	return def
}

// defaultMaxPollIntervalMs 는 분석 한 건(최대 analysis.run_timeout)보다 길어야 한다.
const defaultMaxPollIntervalMs = 15 * 60 * 1000

func envInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		config.Logger.Warnf("%s 환경변수 값이 올바르지 않습니다 (%q). 기본값 사용.", name, raw)
		return def
	}
	return v
}
