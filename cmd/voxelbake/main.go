package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/voxelcore/internal/config"
	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/metrics"
	"github.com/annel0/voxelcore/internal/observability"
	"github.com/annel0/voxelcore/internal/pipeline"
	"github.com/annel0/voxelcore/internal/storage"
	"github.com/annel0/voxelcore/internal/vec"
)

// options параметры командной строки
type options struct {
	configPath   string
	radius       int
	zMin         int
	zMax         int
	serveMetrics bool
	otelEndpoint string
	verify       bool
	prune        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "путь к YAML конфигурации (по умолчанию ENV VOXEL_CONFIG)")
	flag.IntVar(&opts.radius, "chunks", 2, "радиус региона в чанках по X и Y")
	flag.IntVar(&opts.zMin, "zmin", -1, "нижний чанк региона по Z")
	flag.IntVar(&opts.zMax, "zmax", 1, "верхний чанк региона по Z (включительно)")
	flag.BoolVar(&opts.serveMetrics, "metrics", false, "публиковать /metrics во время сборки")
	flag.StringVar(&opts.otelEndpoint, "otel", "", "адрес OTLP HTTP коллектора (host:port)")
	flag.BoolVar(&opts.verify, "verify", false, "проверять покрытие боксами каждого чанка")
	flag.BoolVar(&opts.prune, "prune", false, "удалить сохраненные чанки вне региона")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, opts)
	stop()
	if err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

// run выполняет сборку. Все ресурсы освобождаются до возврата, в том числе при ошибке.
func run(ctx context.Context, opts options) (err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if opts.verify {
		cfg.Pipeline.VerifyMeshes = true
	}

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("voxelbake", cfg.Logging.Dir); err != nil {
		return fmt.Errorf("ошибка инициализации логирования: %w", err)
	}
	defer logging.CloseDefaultLogger()

	level, levelErr := logging.ParseLevel(cfg.Logging.Level)
	if levelErr != nil {
		logging.Warn("Неизвестный уровень логирования %q, используется INFO", cfg.Logging.Level)
		level = logging.INFO
	}
	logging.Default().SetLevels(level, logging.DEBUG)
	manager := logging.GetLoggerManager()
	manager.SetDir(cfg.Logging.Dir)
	manager.SetAllLevels(level, logging.DEBUG)
	defer func() {
		err = errors.Join(err, manager.CloseAll())
	}()

	logging.Info("🧊 Запуск voxelbake: чанк %d, глубина %d, воркеров %d",
		cfg.Octree.ChunkSize, cfg.Octree.Depth, cfg.Pipeline.GetWorkers())

	// === ТЕЛЕМЕТРИЯ ===
	if opts.otelEndpoint != "" {
		shutdown, telemetryErr := observability.InitTelemetry(ctx, "voxelbake", opts.otelEndpoint)
		if telemetryErr != nil {
			logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", telemetryErr)
		} else {
			logging.Info("🔭 Трейсы отправляются в %s", opts.otelEndpoint)
			defer func() {
				if shutdownErr := shutdown(context.Background()); shutdownErr != nil {
					logging.Error("Ошибка остановки OpenTelemetry: %v", shutdownErr)
				}
			}()
		}
	}

	// === МЕТРИКИ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)
	if opts.serveMetrics {
		srv := metrics.StartHTTP(cfg.Metrics.GetAddr(), registry)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				logging.Error("Ошибка остановки Prometheus HTTP сервера: %v", shutdownErr)
			}
		}()
	}

	// === ХРАНИЛИЩЕ ===
	store, err := storage.Open(storage.Options{
		Path:     cfg.Storage.Path,
		InMemory: cfg.Storage.InMemory,
		Compress: cfg.Storage.Compress,
	})
	if err != nil {
		return fmt.Errorf("ошибка открытия хранилища: %w", err)
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	// === СБОРКА ===
	p := pipeline.New(cfg, store, collector)

	restored, err := p.Restore(ctx)
	if err != nil {
		return fmt.Errorf("ошибка восстановления чанков: %w", err)
	}
	if restored > 0 {
		logging.Info("📦 Восстановлено чанков из хранилища: %d", restored)
	}

	cs := cfg.Octree.ChunkSize
	region := vec.NewIntBox(
		vec.Vec3{X: -opts.radius * cs, Y: -opts.radius * cs, Z: opts.zMin * cs},
		vec.Vec3{X: opts.radius * cs, Y: opts.radius * cs, Z: (opts.zMax + 1) * cs},
	)

	report, err := p.Run(ctx, region)
	if err != nil {
		return fmt.Errorf("ошибка сборки: %w", err)
	}
	logging.Info("✅ %s", report)

	if opts.prune {
		removed, err := p.Prune(report.Region)
		if err != nil {
			return fmt.Errorf("ошибка очистки (удалено %d): %w", removed, err)
		}
		logging.Info("🧹 Удалено чанков вне региона: %d", removed)
	}

	lsm, vlog := store.Size()
	logging.Info("💾 Хранилище: LSM %s, vlog %s", humanize.Bytes(uint64(lsm)), humanize.Bytes(uint64(vlog)))

	if stats, statsErr := metrics.ReadProcessStats(); statsErr == nil {
		logging.Info("📊 Процесс: RSS %s, куча %s, CPU %.1f%%",
			humanize.Bytes(stats.RSS), humanize.Bytes(stats.HeapAlloc), stats.CPUPercent)
	} else {
		logging.Debug("Не удалось прочитать статистику процесса: %v", statsErr)
	}

	logging.Info("👋 Готово")
	return nil
}
