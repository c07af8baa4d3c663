package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assistant"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/presence"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/engine"
	aisvc "github.com/trezcool/darasa/services/assistant"
	logsvc "github.com/trezcool/darasa/services/logger"
	realtimesvc "github.com/trezcool/darasa/services/realtime"
	cloudstore "github.com/trezcool/darasa/storage/cloud"
	localstore "github.com/trezcool/darasa/storage/local"
	"github.com/trezcool/darasa/state"
)

func main() {
	std := log.New(os.Stdout, "darasa: ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.GetString("rollbarToken") != "" {
		logger = logsvc.NewRollbarLogger(std)
	} else {
		logger = core.NewStdLogger(std)
	}

	local, err := localstore.NewStore(filepath.Join(core.Getwd(), ".darasa"))
	if err != nil {
		std.Fatalf("opening local store: %v", err)
	}

	store := state.NewStore()
	if app, ok := local.LoadSnapshot(); ok {
		store.Replace(app) // last-known-good until the first sync lands
	}

	backend := cloudstore.NewClient()
	users := user.NewService(backend, store, local, offline)
	eng := engine.New(store, backend, local, users, online, logger)

	chats := chat.NewService(backend)
	tracker := presence.NewTracker(nil) // channel bound below

	channel := realtimesvc.NewChannel(realtimesvc.Handlers{
		OnPresenceSync: func(keys []string) { tracker.ApplySync(keys) },
		OnChatEvent:    chats.HandleEvent,
		OnClosed: func(error) {
			tracker.Teardown()
			eng.SetOnline(false)
		},
	}, logger)
	tracker = presence.NewTracker(channel)

	ai := assistant.NewService(aisvc.NewClient(), backend, backend, chats, logger)
	eng.AttachChat(chats, ai)

	ctx := context.Background()
	users.Restore()
	if err := eng.SyncFromCloud(ctx); err != nil {
		logger.Warn("initial sync failed; serving local data", err)
	}

	if usr, ok := users.Current(); ok && !eng.Offline() {
		if err := tracker.Bind(ctx, usr.ID); err != nil {
			logger.Warn("presence bind failed", err, usr)
		}
		if err := chats.Mount(ctx); err != nil {
			logger.Warn("chat mount failed", err, usr)
		}
	}

	logger.Info("darasa client engine running", map[string]interface{}{"status": eng.Status().String()})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	tracker.Teardown()
	logger.Info("darasa client engine stopped")
}

// online probes for a usable network transport; its negation is the offline
// detector handed to the session manager.
func online() bool {
	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.Dial("tcp", "1.1.1.1:443")
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func offline() bool { return !online() }
