package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/telesalud/shift-sync/backend/internal/config"
	"github.com/telesalud/shift-sync/backend/internal/domain"
	"github.com/telesalud/shift-sync/backend/internal/repository"
	"github.com/telesalud/shift-sync/backend/internal/seed"
	"github.com/telesalud/shift-sync/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// 内置的区域和专科，键为区域名称
var defaultCatalog = map[string][]string{
	"门诊": {"心脏科", "儿科", "皮肤科"},
	"急诊": {"急诊内科", "急诊外科"},
	"远程医疗": {"远程会诊", "远程随访"},
}

func main() {
	var op int
	var n int
	var period string
	var csvPath string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入劳动制度、区域和专科, 2: 插入随机医务人员, 3: 插入随机申报, 4: 从 CSV 导入申报)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&period, "period", "", "随机申报的周期 (YYYYMM)，为空时随机选择")
	flag.StringVar(&csvPath, "csv", "./internal/seed/data/declarations.csv", "要导入的 CSV 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)
	ctx = context.Background()

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		for _, regime := range domain.DefaultLaborRegimes() {
			if err := repo.UpsertLaborRegime(ctx, regime); err != nil {
				slog.Error("无法插入劳动制度", slog.String("name", regime.Name), slog.String("error", err.Error()))
				return
			}
		}

		cnt := 0
		for areaName, specialtyNames := range defaultCatalog {
			area := &domain.Area{Name: areaName}
			if err := repo.UpsertArea(ctx, area); err != nil {
				slog.Error("无法插入区域", slog.String("name", areaName), slog.String("error", err.Error()))
				return
			}
			for _, name := range specialtyNames {
				if err := repo.UpsertSpecialty(ctx, &domain.Specialty{Name: name, AreaID: area.ID}); err != nil {
					slog.Error("无法插入专科", slog.String("name", name), slog.String("error", err.Error()))
					continue
				}
				cnt++
			}
		}

		slog.Info("插入参考数据成功", slog.Int("regimes", len(domain.DefaultLaborRegimes())), slog.Int("specialties", cnt))

		// 参考数据可能已被 API 缓存，需要清除
		if err := invalidateReferenceCache(ctx, cfg, repo); err != nil {
			slog.Warn("无法清除参考数据缓存", slog.String("error", err.Error()))
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的医务人员数量")
			return
		}

		regimes, err := repo.ListLaborRegimes(ctx)
		if err != nil || len(regimes) == 0 {
			slog.Error("没有可用的劳动制度，请先执行 -op 1", "error", err)
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			regime := regimes[rand.Intn(len(regimes))]
			professional, username := utils.GenerateRandomProfessional(regime.ID, cfg.Email.UserDomain)

			err := repo.WithinTx(ctx, false, func(ctx context.Context) error {
				if err := repo.CreateProfessional(ctx, professional); err != nil {
					return err
				}
				user, err := utils.GenerateProfessionalUser(professional, username, cfg.Seed.User.Password)
				if err != nil {
					return err
				}
				return repo.CreateUser(ctx, user)
			})
			if err != nil {
				slog.Error("无法插入医务人员", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入医务人员成功", slog.Int("count", cnt))
	case 3:
		targetPeriod := utils.GenerateRandomPeriod(2)
		if period != "" {
			p, err := domain.ParsePeriod(period)
			if err != nil {
				slog.Error("请输入合法的周期", slog.String("error", err.Error()))
				return
			}
			targetPeriod = p
		}

		professionals, err := repo.ListProfessionals(ctx)
		if err != nil {
			slog.Error("无法获取所有医务人员", slog.String("error", err.Error()))
			return
		}
		specialties, err := repo.ListSpecialties(ctx)
		if err != nil || len(specialties) == 0 {
			slog.Error("没有可用的专科，请先执行 -op 1", "error", err)
			return
		}

		// 为每一个医务人员都生成一份申报并插入
		cnt := 0
		for _, professional := range professionals {
			regime, err := repo.GetLaborRegime(ctx, professional.LaborRegimeID)
			if err != nil {
				slog.Error("无法获取劳动制度", slog.Int64("professional_id", professional.ID), slog.String("error", err.Error()))
				continue
			}

			specialty := specialties[rand.Intn(len(specialties))]
			decl, err := utils.GenerateRandomDeclaration(professional.ID, specialty.ID, targetPeriod, cfg.Declaration.RequiredHours, regime)
			if err != nil {
				slog.Error("无法生成随机申报", slog.String("error", err.Error()))
				continue
			}

			// CreateDeclaration 只写入表头，明细由 SaveDeclaration 写入
			err = repo.WithinTx(ctx, false, func(ctx context.Context) error {
				if err := repo.CreateDeclaration(ctx, decl); err != nil {
					return err
				}
				return repo.SaveDeclaration(ctx, decl)
			})
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrDuplicateDeclaration):
					slog.Warn("申报已存在，跳过", slog.Int64("professional_id", professional.ID), slog.String("period", string(targetPeriod)))
				default:
					slog.Error("无法插入申报", slog.String("error", err.Error()))
				}
				continue
			}

			cnt++
		}

		slog.Info("插入申报成功", slog.String("period", string(targetPeriod)), slog.Int("count", cnt))
	case 4:
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.User.Password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("无法生成密码哈希", slog.String("error", err.Error()))
			return
		}

		cnt, err := seed.ImportDeclarations(ctx, repo, csvPath, seed.ImportOptions{
			PasswordHash:  string(passwordHash),
			RequiredHours: cfg.Declaration.RequiredHours,
		})
		if err != nil {
			slog.Error("导入申报失败", slog.String("error", err.Error()))
			return
		}

		slog.Info("导入申报成功", slog.Int("count", cnt))
	default:
		slog.Error("指定的操作非法")
	}
}

func invalidateReferenceCache(ctx context.Context, cfg *config.Config, repo *repository.Repository) error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	professionals, err := repo.ListProfessionals(ctx)
	if err != nil {
		return err
	}
	specialties, err := repo.ListSpecialties(ctx)
	if err != nil {
		return err
	}

	professionalIDs := make([]int64, 0, len(professionals))
	for _, p := range professionals {
		professionalIDs = append(professionalIDs, p.ID)
	}
	specialtyIDs := make([]int64, 0, len(specialties))
	for _, s := range specialties {
		specialtyIDs = append(specialtyIDs, s.ID)
	}

	cache := repository.NewReferenceCache(repo, rdb, time.Duration(cfg.Redis.ReferenceCacheTTL)*time.Second, slog.Default())
	return cache.Invalidate(ctx, professionalIDs, specialtyIDs)
}
