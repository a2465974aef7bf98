package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_OrderIsOutermostFirst(t *testing.T) {
	t.Parallel()

	var trace []string
	tag := func(name string) middleware {
		return func(next commandHandler) commandHandler {
			return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
				trace = append(trace, name)
				next(s, i)
			}
		}
	}

	h := chain(func(*discordgo.Session, *discordgo.InteractionCreate) {
		trace = append(trace, "handler")
	}, tag("outer"), tag("inner"))
	h(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}})

	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}

func TestMemberHasRole(t *testing.T) {
	t.Parallel()

	roles := newRoleManager(clanGuild(), "guild")
	interaction := func(member *discordgo.Member) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: member}}
	}

	ok, err := memberHasRole(interaction(&discordgo.Member{Roles: []string{"10", "20"}}), "leadership", roles)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = memberHasRole(interaction(&discordgo.Member{Roles: []string{"10"}}), "Leadership", roles)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = memberHasRole(interaction(nil), "Leadership", roles)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStartWorkers_RunsUntilStopped(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	stop := startWorkers(context.Background(), []worker{{
		name:     "counter",
		interval: 5 * time.Millisecond,
		run:      func(context.Context) { runs.Add(1) },
	}})

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	stop()

	stopped := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}
