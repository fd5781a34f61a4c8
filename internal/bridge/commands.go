// Command surface exposed to the external bot runtime. Reply wording,
// usage strings, and the help text are a compatibility contract with
// existing users; argument problems are always plain replies, never errors.
package bridge

import (
	"strconv"
	"strings"
	"time"
)

// RegisterCommands binds every bridge command on the runtime. Call once
// before Run.
func (b *Bridge) RegisterCommands() {
	b.runtime.Register("add", "Add yourself to the JS8Call message group", true, func(c Context) error {
		reply, err := b.registry.Join(c.Sender)
		if err != nil {
			return err
		}
		c.Reply(reply)
		return nil
	})

	b.runtime.Register("remove", "Remove yourself from the JS8Call message group", true, func(c Context) error {
		reply, err := b.registry.Leave(c.Sender)
		if err != nil {
			return err
		}
		c.Reply(reply)
		return nil
	})

	b.runtime.Register("groups", "Show available groups and your subscriptions", false, func(c Context) error {
		c.Reply(b.registry.ListGroups(c.Sender))
		return nil
	})

	b.runtime.Register("join", "Join one or more groups", false, func(c Context) error {
		if len(c.Args) == 0 {
			c.Reply("Usage: /join <group1> <group2> ...")
			return nil
		}
		reply, err := b.registry.AddToGroups(c.Sender, c.Args)
		if err != nil {
			return err
		}
		c.Reply(reply)
		return nil
	})

	b.runtime.Register("leave", "Leave a specific group", false, func(c Context) error {
		if len(c.Args) == 0 {
			c.Reply("Usage: /leave <group>")
			return nil
		}
		reply, err := b.registry.RemoveFromGroup(c.Sender, c.Args[0])
		if err != nil {
			return err
		}
		c.Reply(reply)
		return nil
	})

	b.runtime.Register("mute", "Mute one or more groups or ALL", false, func(c Context) error {
		if len(c.Args) == 0 {
			c.Reply("Usage: /mute <group1> <group2> ... or ALL")
			return nil
		}
		reply, err := b.registry.MuteGroups(c.Sender, c.Args)
		if err != nil {
			return err
		}
		c.Reply(reply)
		return nil
	})

	b.runtime.Register("unmute", "Unmute one or more groups or ALL", false, func(c Context) error {
		if len(c.Args) == 0 {
			c.Reply("Usage: /unmute <group1> <group2> ... or ALL")
			return nil
		}
		reply, err := b.registry.UnmuteGroups(c.Sender, c.Args)
		if err != nil {
			return err
		}
		c.Reply(reply)
		return nil
	})

	b.runtime.Register("help", "Show bot help", false, func(c Context) error {
		c.Reply(b.helpText())
		return nil
	})

	b.runtime.Register("showlog", "Show message log", false, func(c Context) error {
		n := 0
		if len(c.Args) > 0 {
			parsed, err := strconv.Atoi(c.Args[0])
			if err != nil || parsed < 1 {
				c.Reply("Usage: /showlog <number>")
				return nil
			}
			n = parsed
		}
		out, err := b.reporter.RecentLog(n)
		if err != nil {
			return err
		}
		c.Reply(out)
		return nil
	})

	b.runtime.Register("stats", "Show bot statistics", false, func(c Context) error {
		period := ""
		if len(c.Args) > 0 && (c.Args[0] == "day" || c.Args[0] == "month") {
			period = c.Args[0]
		}
		out, err := b.reporter.Stats(period)
		if err != nil {
			return err
		}
		c.Reply(out)
		return nil
	})

	b.runtime.Register("info", "Show bot information", false, func(c Context) error {
		c.Reply(b.infoText())
		return nil
	})

	b.runtime.Register("analytics", "Show usage statistics", false, func(c Context) error {
		period := ""
		if len(c.Args) > 0 && (c.Args[0] == "day" || c.Args[0] == "week") {
			period = c.Args[0]
		}
		out, err := b.reporter.Analytics(period)
		if err != nil {
			return err
		}
		c.Reply(out)
		return nil
	})
}

// helpText renders the command list plus the configured catalogs.
func (b *Bridge) helpText() string {
	cmds := []string{
		"/add (admin only) - Add yourself to the JS8Call message group",
		"/remove (admin only) - Remove yourself from the JS8Call message group",
		"/groups - Show available groups and your subscriptions",
		"/join <group1> <group2> ... - Join one or more groups",
		"/leave <group> - Leave a specific group",
		"/mute <group1> <group2> ... or ALL - Mute one or more groups or all groups",
		"/unmute <group1> <group2> ... or ALL - Unmute one or more groups or all groups",
		"/help - Show this help message",
		"/showlog <number> - Show the last <number> messages (max 50)",
		"/stats - Show current stats",
		"/stats <day|month> - Show stats for the specified period",
		"/info - Show bot information",
		"/analytics [day|week] - Show usage statistics",
	}
	msg := "Available commands:\n" + strings.Join(cmds, "\n")

	ordinary, urgent := b.registry.Catalogs()
	if len(ordinary) > 0 {
		msg += "\n\nConfigured JS8Call groups:\n" + strings.Join(ordinary, ", ")
	}
	if len(urgent) > 0 {
		msg += "\n\nConfigured URGENT groups:\n" + strings.Join(urgent, ", ")
	}
	return msg
}

// infoText renders uptime plus any configured operator details.
func (b *Bridge) infoText() string {
	uptime := time.Since(b.startTime).Truncate(time.Second)
	info := "Bot uptime: " + uptime.String() + "\n"
	if b.cfg.BotLocation != "" {
		info += "Location: " + b.cfg.BotLocation + "\n"
	}
	if b.cfg.NodeOperator != "" {
		info += "Node operator: " + b.cfg.NodeOperator + "\n"
	}
	if b.cfg.BotLocation == "" && b.cfg.NodeOperator == "" {
		info += "No additional info available"
	}
	return info
}
