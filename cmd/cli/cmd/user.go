package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pm2dash/internal/app/cli"
	"pm2dash/internal/domain/user"
)

func newUserCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Управление учетными записями",
		Long:  `Создание, просмотр, удаление учетных записей и смена пароля.`,
	}

	cmd.AddCommand(
		newUserCreateCmd(opts),
		newUserListCmd(opts),
		newUserDeleteCmd(opts),
		newUserPasswdCmd(opts),
	)

	return cmd
}

func newUserCreateCmd(opts *options) *cobra.Command {
	var (
		username      string
		role          string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Создать учетную запись",
		Long: `Создает учетную запись. Без --password-stdin пароль генерируется
(12 символов, все классы символов) и выводится один раз.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd)

			if username == "" {
				var err error
				if username, err = p.line("Имя пользователя: "); err != nil {
					return err
				}
			}

			password, generated := "", false
			if passwordStdin {
				var err error
				if password, err = p.newSecret("Пароль: "); err != nil {
					return err
				}
			} else {
				var err error
				if password, err = user.GeneratePassword(user.DefaultGeneratedPasswordLen); err != nil {
					return err
				}
				generated = true
			}

			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				u, err := app.Users.CreateUser(ctx, username, password, user.Role(role))
				if err != nil {
					return describe(err)
				}

				out := cmd.OutOrStdout()
				success.Fprintf(out, "Пользователь %q создан (роль: %s)\n", u.Username, u.Role)
				if generated {
					fmt.Fprint(out, "Сгенерированный пароль: ")
					emph.Fprintln(out, password)
					warning.Fprintln(out, "Сохраните его сейчас: повторно он показан не будет.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "имя пользователя (иначе спросить)")
	cmd.Flags().StringVar(&role, "role", string(user.RoleAdmin), "роль: admin или user")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "прочитать пароль из stdin вместо генерации")

	return cmd
}

func newUserListCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Показать учетные записи",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				users, err := app.Users.GetUsers(ctx)
				if err != nil {
					return describe(err)
				}

				now := time.Now()
				out := cmd.OutOrStdout()

				if asJSON {
					rows := make([]listRow, 0, len(users))
					for _, u := range users {
						rows = append(rows, toRow(u, now))
					}
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(rows)
				}

				if len(users) == 0 {
					warning.Fprintln(out, "Учетных записей нет. Создать: pm2dash user create")
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ИМЯ\tРОЛЬ\tСОЗДАН\tПОСЛЕДНИЙ ВХОД\tОШИБОК\tЗАБЛОКИРОВАН ДО")
				for _, u := range users {
					r := toRow(u, now)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						r.Username, r.Role, formatTime(&r.CreatedAt), formatTime(r.LastLogin),
						strconv.Itoa(r.FailedAttempts), lockedUntil(r))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "вывод в формате JSON")
	return cmd
}

func newUserDeleteCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Удалить учетную запись",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]

			if !yes {
				ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Удалить пользователя %q?", username))
				if err != nil {
					return err
				}
				if !ok {
					warning.Fprintln(cmd.OutOrStdout(), "Отменено.")
					return nil
				}
			}

			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				if err := app.Users.DeleteUser(ctx, username); err != nil {
					return describe(err)
				}
				app.RevokeSessions(ctx, username)

				success.Fprintf(cmd.OutOrStdout(), "Пользователь %q удален\n", username)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "не спрашивать подтверждение")
	return cmd
}

func newUserPasswdCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Сменить пароль",
		Long: `Меняет пароль учетной записи. Нужен текущий пароль.
Без терминала читает две строки из stdin: текущий и новый пароль.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			p := newPrompter(cmd)

			current, err := p.secret("Текущий пароль: ")
			if err != nil {
				return err
			}
			next, err := p.newSecret("Новый пароль: ")
			if err != nil {
				return err
			}

			return withApp(cmd, opts, func(ctx context.Context, app *cli.App) error {
				if err := app.Users.ChangePassword(ctx, username, current, next); err != nil {
					return describe(err)
				}
				app.RevokeSessions(ctx, username)

				success.Fprintf(cmd.OutOrStdout(), "Пароль пользователя %q изменен\n", username)
				return nil
			})
		},
	}

	return cmd
}

type listRow struct {
	Username       string     `json:"username"`
	Role           user.Role  `json:"role"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	FailedAttempts int        `json:"failedAttempts"`
	LockedUntil    *time.Time `json:"lockedUntil,omitempty"`
	Locked         bool       `json:"locked"`
}

func toRow(u user.User, now time.Time) listRow {
	return listRow{
		Username:       u.Username,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
		LastLogin:      u.LastLogin,
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
		Locked:         u.IsLocked(now),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func lockedUntil(r listRow) string {
	if !r.Locked {
		return "-"
	}
	return formatTime(r.LockedUntil)
}

// describe делает доменные ошибки читаемыми в терминале
func describe(err error) error {
	switch {
	case errors.Is(err, user.ErrDuplicateUsername):
		return errors.New("пользователь с таким именем уже существует")
	case errors.Is(err, user.ErrUserNotFound):
		return errors.New("пользователь не найден")
	case errors.Is(err, user.ErrInvalidCredentials):
		return errors.New("неверный текущий пароль")
	default:
		return err
	}
}
