package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Export target selection.
const (
	ExportModeMemory = "memory"
	ExportModeDir    = "dir"
	ExportModeS3     = "s3"
)

type Config struct {
	Port   string
	Env    string
	LLM    LLMConfig
	Export ExportConfig
}

type LLMConfig struct {
	APIKey string
	Model  string
	// Timeout bounds each collaborator call. Zero disables the deadline.
	Timeout time.Duration
}

type ExportConfig struct {
	Mode      string
	Dir       string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	exp, err := loadExportConfig(env)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:   *port,
		Env:    env,
		LLM:    llm,
		Export: exp,
	}, nil
}

func loadLLMConfig() (LLMConfig, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("API_KEY"))
	}
	if apiKey == "" {
		return LLMConfig{}, fmt.Errorf("GEMINI_API_KEY is required")
	}

	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			return LLMConfig{}, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS: %q", raw)
		}
		timeout = time.Duration(secs) * time.Second
	}

	return LLMConfig{
		APIKey:  apiKey,
		Model:   strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		Timeout: timeout,
	}, nil
}

func loadExportConfig(env string) (ExportConfig, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("EXPORT_MODE")))
	if mode == "" {
		switch {
		case strings.EqualFold(env, "local"):
			mode = ExportModeDir
		case strings.TrimSpace(os.Getenv("EXPORT_S3_ENDPOINT")) != "":
			mode = ExportModeS3
		default:
			mode = ExportModeMemory
		}
	}

	cfg := ExportConfig{
		Mode:      mode,
		Dir:       firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_DIR")), "tmp/exports"),
		Endpoint:  strings.TrimSpace(os.Getenv("EXPORT_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_BUCKET")), "tax-inference-exports"),
		UseSSL:    resolveExportUseSSL(env),
	}

	switch cfg.Mode {
	case ExportModeMemory, ExportModeDir:
	case ExportModeS3:
		if cfg.Endpoint == "" {
			return ExportConfig{}, fmt.Errorf("EXPORT_S3_ENDPOINT is required for s3 export mode")
		}
	default:
		return ExportConfig{}, fmt.Errorf("unknown EXPORT_MODE: %q", mode)
	}
	return cfg, nil
}

func resolveExportUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("EXPORT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
