package economy

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const commandTimeout = 5 * time.Second

// CommandBacked delegates balance reads and mutations to configured shell
// commands, with {player} and {amount} substituted. It mirrors
// placeholder/command driven economies where the authoritative state lives
// in another process.
type CommandBacked struct {
	BalanceCommand string
	AddCommand     string
	RemoveCommand  string
}

func (c *CommandBacked) Balance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	out, err := c.run(ctx, c.BalanceCommand, playerID, decimal.Zero)
	if err != nil {
		return decimal.Zero, err
	}
	value, err := decimal.NewFromString(strings.TrimSpace(out))
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance command returned %q: %w", out, err)
	}
	return value, nil
}

// Withdraw re-checks the balance itself because the remove command has no
// failure contract of its own.
func (c *CommandBacked) Withdraw(ctx context.Context, playerID string, amount decimal.Decimal) (bool, error) {
	current, err := c.Balance(ctx, playerID)
	if err != nil {
		return false, err
	}
	if current.LessThan(amount) {
		return false, nil
	}
	if _, err := c.run(ctx, c.RemoveCommand, playerID, amount); err != nil {
		return false, err
	}
	return true, nil
}

func (c *CommandBacked) Deposit(ctx context.Context, playerID string, amount decimal.Decimal) error {
	_, err := c.run(ctx, c.AddCommand, playerID, amount)
	return err
}

func (c *CommandBacked) run(ctx context.Context, template, playerID string, amount decimal.Decimal) (string, error) {
	command := strings.ReplaceAll(template, "{player}", playerID)
	command = strings.ReplaceAll(command, "{amount}", amount.String())

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "sh", "-c", command).Output()
	if err != nil {
		return "", fmt.Errorf("currency command failed: %w", err)
	}
	return string(out), nil
}
