package bot

import (
	"strings"
	"time"

	"ironforged/bot/common"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

type commandHandler func(s *discordgo.Session, i *discordgo.InteractionCreate)

type middleware func(next commandHandler) commandHandler

// chain wraps h so the first middleware runs outermost
func chain(h commandHandler, middlewares ...middleware) commandHandler {
	for idx := len(middlewares) - 1; idx >= 0; idx-- {
		h = middlewares[idx](h)
	}
	return h
}

// requireRole lets the command through only for members holding roleName
func requireRole(roleName string, roles roleResolver) middleware {
	return func(next commandHandler) commandHandler {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			allowed, err := memberHasRole(i, roleName, roles)
			if err != nil {
				common.RespondWithBotError(s, i, common.NewBotError("Unable to check your roles. Please try again.", "Error resolving member roles", err))
				return
			}
			if !allowed {
				log.WithFields(log.Fields{
					"command": i.ApplicationCommandData().Name,
					"userID":  common.UserID(i),
				}).Warn("Command refused, missing role")
				common.RespondWithError(s, i, "You need the "+roleName+" role to use this command")
				return
			}
			next(s, i)
		}
	}
}

// logCommand logs every invocation with its duration
func logCommand(next commandHandler) commandHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		start := time.Now()
		next(s, i)
		log.WithFields(log.Fields{
			"command":  i.ApplicationCommandData().Name,
			"userID":   common.UserID(i),
			"duration": time.Since(start),
		}).Info("Command handled")
	}
}

func memberHasRole(i *discordgo.InteractionCreate, roleName string, roles roleResolver) (bool, error) {
	if i.Member == nil {
		return false, nil
	}
	names, err := roles.RoleNames(i.Member.Roles)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if strings.EqualFold(name, roleName) {
			return true, nil
		}
	}
	return false, nil
}
