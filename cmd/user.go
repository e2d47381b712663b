package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/nsxzhou1114/bookmarks-api/internal/dto"
	"github.com/nsxzhou1114/bookmarks-api/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// userCmd 用户管理命令
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "用户管理命令",
	Long:  `用户管理相关的命令，包括创建管理员、列出用户、重置密码等`,
}

// createAdminCmd 创建管理员用户命令
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "创建管理员用户",
	Long:  `交互式创建管理员用户`,
	Run: func(cmd *cobra.Command, args []string) {
		createAdminUser()
	},
}

// listUsersCmd 列出用户命令
var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "列出用户",
	Long:  `列出系统中最近注册的用户`,
	Run: func(cmd *cobra.Command, args []string) {
		listUsers()
	},
}

// resetPasswordCmd 重置用户密码命令
var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password [username]",
	Short: "重置用户密码",
	Long:  `重置指定用户的密码`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resetUserPassword(args[0])
	},
}

// updateUserStatusCmd 更新用户状态命令
var updateUserStatusCmd = &cobra.Command{
	Use:   "update-status [username] [status]",
	Short: "更新用户状态",
	Long:  `更新用户状态 (0=禁用, 1=启用)，禁用的用户无法登录`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		updateUserStatus(args[0], args[1])
	},
}

func init() {
	userCmd.AddCommand(createAdminCmd)
	userCmd.AddCommand(listUsersCmd)
	userCmd.AddCommand(resetPasswordCmd)
	userCmd.AddCommand(updateUserStatusCmd)

	rootCmd.AddCommand(userCmd)
}

// readPassword 读取两次密码并校验一致
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}

	fmt.Print("请再次输入: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("读取确认密码失败: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("两次输入的密码不一致")
	}
	return string(first), nil
}

// createAdminUser 创建管理员用户，走注册流程以同时创建资料和动态
func createAdminUser() {
	a := mustInit()
	defer a.close()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("请输入管理员用户名: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	fmt.Print("请输入管理员邮箱: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	password, err := readPassword("请输入管理员密码: ")
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	user, _, err := a.users.Register(ctx, &dto.RegisterRequest{
		Username: username,
		Password: password,
		Email:    email,
	})
	if err != nil {
		fmt.Printf("创建管理员用户失败: %v\n", err)
		return
	}

	if err := a.db.WithContext(ctx).Model(user).Update("role", "admin").Error; err != nil {
		fmt.Printf("设置管理员角色失败: %v\n", err)
		return
	}

	fmt.Printf("管理员用户创建成功！\n")
	fmt.Printf("用户名: %s\n", username)
	fmt.Printf("邮箱: %s\n", email)
}

// listUsers 列出用户
func listUsers() {
	a := mustInit()
	defer a.close()

	var users []model.User
	if err := a.db.Select("id, username, email, role, status, created_at, last_login_at").
		Order("created_at DESC").
		Limit(50).
		Find(&users).Error; err != nil {
		fmt.Printf("查询用户列表失败: %v\n", err)
		return
	}

	fmt.Printf("%-5s %-20s %-30s %-8s %-6s %-18s %-18s\n",
		"ID", "用户名", "邮箱", "角色", "状态", "创建时间", "最后登录")
	fmt.Println(strings.Repeat("-", 110))

	for _, user := range users {
		status := "启用"
		if user.Status == model.UserStatusDisabled {
			status = "禁用"
		}

		lastLogin := "从未登录"
		if user.LastLoginAt != nil {
			lastLogin = user.LastLoginAt.Format("2006-01-02 15:04")
		}

		fmt.Printf("%-5d %-20s %-30s %-8s %-6s %-18s %-18s\n",
			user.ID, user.Username, user.Email,
			user.Role, status, user.CreatedAt.Format("2006-01-02 15:04"), lastLogin)
	}
}

// resetUserPassword 重置用户密码
func resetUserPassword(username string) {
	a := mustInit()
	defer a.close()

	ctx := context.Background()
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		fmt.Printf("用户不存在: %v\n", err)
		return
	}

	password, err := readPassword("请输入新密码: ")
	if err != nil {
		fmt.Println(err)
		return
	}
	if len(password) < 6 || len(password) > 32 {
		fmt.Println("密码长度必须在6到32之间")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("密码加密失败: %v\n", err)
		return
	}
	if err := a.db.WithContext(ctx).Model(user).Update("password", string(hashed)).Error; err != nil {
		fmt.Printf("重置密码失败: %v\n", err)
		return
	}

	fmt.Printf("用户 %s 的密码重置成功！\n", username)
}

// updateUserStatus 更新用户状态
func updateUserStatus(username, statusStr string) {
	a := mustInit()
	defer a.close()

	status, err := strconv.Atoi(statusStr)
	if err != nil || (status != model.UserStatusDisabled && status != model.UserStatusActive) {
		fmt.Println("状态值必须是 0 (禁用) 或 1 (启用)")
		return
	}

	ctx := context.Background()
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		fmt.Printf("用户不存在: %v\n", err)
		return
	}

	if err := a.db.WithContext(ctx).Model(user).Update("status", status).Error; err != nil {
		fmt.Printf("更新用户状态失败: %v\n", err)
		return
	}

	statusText := "启用"
	if status == model.UserStatusDisabled {
		statusText = "禁用"
	}
	fmt.Printf("用户 %s 的状态已更新为: %s\n", username, statusText)
}
