package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxelcore/internal/vec"
)

// ErrInvalid возвращается Validate для некорректной конфигурации
var ErrInvalid = errors.New("некорректная конфигурация")

// Config корневая структура конфигурации
type Config struct {
	Octree   OctreeConfig   `yaml:"octree"`
	Terrain  TerrainConfig  `yaml:"terrain"`
	SDF      SDFConfig      `yaml:"sdf"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type OctreeConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Depth     int `yaml:"depth"`
}

type TerrainConfig struct {
	Seed       int64   `yaml:"seed"`
	Scale      float64 `yaml:"scale"`
	BaseHeight float64 `yaml:"base_height"`
	Amplitude  float64 `yaml:"amplitude"`
	Octaves    int     `yaml:"octaves"`
}

type SDFConfig struct {
	IndirectionX int `yaml:"mip0_indirection_x"`
	IndirectionY int `yaml:"mip0_indirection_y"`
	IndirectionZ int `yaml:"mip0_indirection_z"`
}

// Mip0IndirectionSize возвращает размер сетки мипа 0
func (s SDFConfig) Mip0IndirectionSize() vec.Vec3 {
	return vec.Vec3{X: s.IndirectionX, Y: s.IndirectionY, Z: s.IndirectionZ}
}

type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	Compress bool   `yaml:"compress"`
}

type PipelineConfig struct {
	Workers      int  `yaml:"workers"`
	VerifyMeshes bool `yaml:"verify_meshes"`
}

// GetWorkers возвращает число воркеров с поддержкой fallback значений
func (p *PipelineConfig) GetWorkers() int {
	return getIntWithEnvFallback(p.Workers, "VOXEL_WORKERS", 4)
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// GetAddr возвращает адрес Prometheus метрик с поддержкой fallback значений
func (m *MetricsConfig) GetAddr() string {
	if m.Addr != "" {
		return m.Addr
	}
	if envVal := os.Getenv("VOXEL_METRICS_ADDR"); envVal != "" {
		return envVal
	}
	return ":2112"
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Octree: OctreeConfig{ChunkSize: 32, Depth: 3},
		Terrain: TerrainConfig{
			Seed:       1337,
			Scale:      0.01,
			BaseHeight: 0,
			Amplitude:  24,
			Octaves:    3,
		},
		SDF:      SDFConfig{IndirectionX: 16, IndirectionY: 16, IndirectionZ: 8},
		Storage:  StorageConfig{Path: "data/voxels", Compress: true},
		Pipeline: PipelineConfig{VerifyMeshes: false},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load читает YAML файл поверх Default().
// Если path == "", пытается прочитать путь из ENV VOXEL_CONFIG; если и он
// не задан, возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать конфиг %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать конфиг %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	cs := c.Octree.ChunkSize
	if cs < 2 || cs&(cs-1) != 0 {
		return fmt.Errorf("%w: octree.chunk_size=%d должен быть степенью двойки", ErrInvalid, cs)
	}
	if c.Octree.Depth < 0 || c.Octree.Depth > 16 {
		return fmt.Errorf("%w: octree.depth=%d вне [0, 16]", ErrInvalid, c.Octree.Depth)
	}
	if !c.SDF.Mip0IndirectionSize().AllGreaterEqual(vec.Splat(1)) {
		return fmt.Errorf("%w: размер сетки sdf %v", ErrInvalid, c.SDF.Mip0IndirectionSize())
	}
	if c.Terrain.Scale <= 0 {
		return fmt.Errorf("%w: terrain.scale=%v", ErrInvalid, c.Terrain.Scale)
	}
	if c.Terrain.Octaves < 1 {
		return fmt.Errorf("%w: terrain.octaves=%d", ErrInvalid, c.Terrain.Octaves)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path пустой", ErrInvalid)
	}
	return nil
}
