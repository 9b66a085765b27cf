package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pm2dash/internal/app/server/crypto"
)

func newGenerateKeyCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "generate-key",
		Short: "Сгенерировать ключ шифрования хранилища",
		Long: `Генерирует 32 случайных байта в hex (64 символа) для ENCRYPTION_KEY.

Ключ нельзя восстановить: без него файл учетных записей не расшифровать.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(out, key)
				return nil
			}

			success.Fprintln(out, "Сгенерирован ключ шифрования:")
			fmt.Fprintln(out, key)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Добавьте строку в .env:")
			emph.Fprintf(out, "ENCRYPTION_KEY=%s\n", key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "вывести только ключ")
	return cmd
}
