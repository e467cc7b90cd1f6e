package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cosmicpool/cosmicpool/account"
	"github.com/cosmicpool/cosmicpool/util"
)

const (
	mnemonicCmdFlag       = "mnemonic"
	promptMnemonicCmdFlag = "prompt"
	forceKeyGenCmdFlag    = "force"
)

type keysFlags struct {
	KeyFile        string
	Mnemonic       string
	PromptMnemonic bool
	Force          bool
}

func newKeysCmd(config *baseConfiguration) *cobra.Command {
	flags := &keysFlags{}
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Creates the account key file or shows the address of an existing one",
		Long: `Creates the account key file from a new or given mnemonic. The key is derived
using path m/44'/60'/0'/0/0. When the key file already exists its address is printed,
use --force to replace the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return keysRun(config, flags)
		},
	}
	addKeyFileFlag(cmd, &flags.KeyFile)
	cmd.Flags().StringVarP(&flags.Mnemonic, mnemonicCmdFlag, "m", "", "restore the key from mnemonic, the number of words should be 12, 15, 18, 21 or 24")
	cmd.Flags().BoolVar(&flags.PromptMnemonic, promptMnemonicCmdFlag, false, "read the mnemonic from the terminal")
	cmd.Flags().BoolVarP(&flags.Force, forceKeyGenCmdFlag, "f", false, "overwrite the existing key file")
	cmd.MarkFlagsMutuallyExclusive(mnemonicCmdFlag, promptMnemonicCmdFlag)
	return cmd
}

func keysRun(config *baseConfiguration, flags *keysFlags) error {
	file := config.keyFile(flags.KeyFile)
	restore := flags.Mnemonic != "" || flags.PromptMnemonic

	if util.FileExists(file) && !flags.Force {
		if restore {
			return fmt.Errorf("%w: %s, use --%s to overwrite", account.ErrKeyFileExists, file, forceKeyGenCmdFlag)
		}
		key, err := loadAccountKey(file)
		if err != nil {
			return err
		}
		consoleWriter.Println("Account address:", key.Address.Hex())
		return nil
	}

	mnemonic := flags.Mnemonic
	if flags.PromptMnemonic {
		var err error
		if mnemonic, err = readMnemonic("Enter mnemonic: "); err != nil {
			return fmt.Errorf("reading mnemonic: %w", err)
		}
	}
	keys, err := account.NewKeys(mnemonic)
	if err != nil {
		return fmt.Errorf("creating keys: %w", err)
	}
	if err := account.SaveKeys(file, keys, flags.Force); err != nil {
		return fmt.Errorf("saving keys: %w", err)
	}
	if !restore {
		consoleWriter.Println("Mnemonic:", keys.Mnemonic)
	}
	consoleWriter.Println("Account address:", keys.AccountKey.Address.Hex())
	consoleWriter.Println("Key file:", file)
	return nil
}

// readMnemonic reads the mnemonic without echo when stdin is a terminal.
func readMnemonic(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	consoleWriter.Printf("%s", prompt)
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	consoleWriter.Println("") // line break after reading the mnemonic
	return strings.TrimSpace(string(b)), nil
}
