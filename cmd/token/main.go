// Package main 提供签发 API 访问 token 的命令行工具。
package main

import (
	"flag"
	"fmt"
	"love-coach-go/internal/config"
	"love-coach-go/pkg/token"
	"os"
	"time"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	subject := flag.String("subject", "", "token 的 subject（调用方标识）")
	ttlHours := flag.Int("ttl-hours", 0, "有效期（小时），0 表示使用配置中的默认值")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.Secret == "" {
		fmt.Fprintln(os.Stderr, "auth.secret 未配置")
		os.Exit(1)
	}

	jwtManager := token.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTLHours)
	tok, err := jwtManager.GenerateToken(*subject, time.Duration(*ttlHours)*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "签发 token 失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
