package handlers

import (
	"fmt"
	"runtime"
	"time"

	"durandal/bot"
	"durandal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cpuCount, _ := cpu.Counts(true)
	cpuUsage := "n/a"
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		cpuUsage = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}

	memUsage := "n/a"
	if vm, err := mem.VirtualMemory(); err == nil {
		memUsage = fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024)
	}

	osVersion := runtime.GOOS
	hostUptime := "n/a"
	if hostInfo, err := host.Info(); err == nil {
		osVersion = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
		hostUptime = utils.PrintHuman(time.Duration(hostInfo.Uptime) * time.Second)
	} else {
		log.Debug().Err(err).Msg("Failed to read host info")
	}

	botUptime := "n/a"
	if !b.StartedAt.IsZero() {
		botUptime = utils.PrintHuman(time.Since(b.StartedAt))
	}

	guilds := 0
	if s.State != nil {
		guilds = len(s.State.Guilds)
	}

	embed := &discordgo.MessageEmbed{
		Title: "Bot Info",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "OS", Value: osVersion, Inline: true},
			{Name: "Go", Value: runtime.Version(), Inline: true},
			{Name: "CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "CPU usage", Value: cpuUsage, Inline: true},
			{Name: "Memory", Value: memUsage, Inline: true},
			{Name: "Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "Host uptime", Value: orNA(hostUptime), Inline: true},
			{Name: "Bot uptime", Value: orNA(botUptime), Inline: true},
			{Name: "Gateway latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "Guilds", Value: fmt.Sprintf("%d", guilds), Inline: true},
			{Name: "Loaded communities", Value: fmt.Sprintf("%d", len(b.Registry.Guilds())), Inline: true},
			{Name: "Active timeouts", Value: fmt.Sprintf("%d", b.Registry.ActiveCount()), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Durandal",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to send bot info")
	}
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
