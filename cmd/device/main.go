// device 是统制团各终端使用的命令行客户端。
//
// 共享存储为服务端（remote）或本机 SQLite（local，单机演练用）；
// 设备身份始终保存在本机 data_file 中。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mosa54/control-center/config"
	"github.com/mosa54/control-center/internal/gateway"
	"github.com/mosa54/control-center/internal/ledger"
	apperrors "github.com/mosa54/control-center/pkg/errors"
	"github.com/mosa54/control-center/pkg/localdb"
	applogger "github.com/mosa54/control-center/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Usage = usage
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "device")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 本机存储：设备身份（local 模式下也承载共享数据）
	store, err := localdb.Open(cfg.Device.DataFile)
	if err != nil {
		logger.Fatal("打开本机存储失败", zap.Error(err))
	}
	defer store.Close()
	if err := store.InitSchema(ctx); err != nil {
		logger.Fatal("初始化本机存储失败", zap.Error(err))
	}

	// 4. 共享存储
	var gw gateway.Gateway
	switch cfg.Device.Storage {
	case "local":
		gw = gateway.NewLocal(store, logger)
	default:
		gw = gateway.NewRemote(cfg.Device.ServerURL, cfg.Device.RequestTimeout, logger)
	}

	l := ledger.New(gw, ledger.NewSQLiteIdentityStore(store),
		ledger.WithDepartmentOrder(cfg.Roster.DepartmentOrder),
		ledger.WithLogger(logger),
	)
	if err := l.Load(ctx); err != nil {
		logger.Warn("加载共享数据不完整", zap.Error(err))
	}

	app := &app{ledger: l, out: os.Stdout, pollInterval: cfg.Device.PollInterval}
	if err := app.run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(exitCode(err))
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `用法: device [-config 路径] <命令> [参数]

命令:
  status                     显示会话设置、本机身份与各编成部应召情况
  checkin <id> [on|off]      应召（교대근무자须指定 당번/비번）
  checkout <id>              取消指定人员应召
  cancel                     取消本机人员应召
  transfer <id> <编成部>      调整编成部
  reset                      清空全部应召记录
  mode <drill|emergency>     设置召集类型
  summary <内容>              设置灾情概要
  import <文件>               导入名册（.xlsx 或 .yaml）
  mission [id]               显示任务卡（默认本机人员）
  watch                      持续显示应召情况
`)
	flag.PrintDefaults()
}

// describe 按错误分类给出提示
func describe(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindAlreadyCheckedIn:
		return "已应召: " + err.Error()
	case apperrors.KindNotCheckedIn:
		return "未应召: " + err.Error()
	case apperrors.KindValidation:
		return "参数错误: " + err.Error()
	case apperrors.KindUnavailable:
		return "共享存储暂不可用，请稍后重试: " + err.Error()
	case apperrors.KindCorrupted:
		return "名册数据已损坏: " + err.Error()
	default:
		return "错误: " + err.Error()
	}
}

func exitCode(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return 2
	case apperrors.KindUnavailable:
		return 3
	default:
		return 1
	}
}
