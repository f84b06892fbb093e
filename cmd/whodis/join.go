package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/whodis/internal/capture"
	"github.com/1ureka/whodis/internal/config"
	"github.com/1ureka/whodis/internal/media"
	"github.com/1ureka/whodis/internal/protocol"
	"github.com/1ureka/whodis/internal/session"
	"github.com/1ureka/whodis/internal/signaling"
	"github.com/1ureka/whodis/internal/transport"
	"github.com/1ureka/whodis/internal/util"
)

func newJoinCmd() *cobra.Command {
	var flags config.Client
	var mode string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Find a stranger and start chatting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClient(configPath)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("server") {
				cfg.ServerURL, err = normalizeWSURL(flags.ServerURL)
				if err != nil {
					return err
				}
			}
			if f.Changed("codec") {
				cfg.Codec = flags.Codec
			}
			if f.Changed("interests") {
				cfg.Interests = flags.Interests
			}
			if f.Changed("gender") {
				cfg.Gender = flags.Gender
			}
			if f.Changed("mode") {
				cfg.Mode = config.Mode(mode)
			}
			if f.Changed("stun") {
				cfg.STUN = flags.STUN
			}
			if f.Changed("turn") {
				cfg.TURN = flags.TURN
			}
			if f.Changed("handshake-timeout") {
				cfg.HandshakeTimeout = flags.HandshakeTimeout
			}
			if f.Changed("capture-interval") {
				cfg.CaptureInterval = flags.CaptureInterval
			}
			if err := applyLogLevel(cfg.LogLevel); err != nil {
				return err
			}

			banner()
			if len(cfg.Interests) == 0 && !f.Changed("interests") && stdinIsTerminal() {
				askCriteria(cfg)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runJoin(cmd.Context(), cfg)
		},
	}

	def := config.DefaultClient()
	cmd.Flags().StringVarP(&flags.ServerURL, "server", "s", def.ServerURL, "signaling server URL")
	cmd.Flags().StringVar(&flags.Codec, "codec", def.Codec, "wire codec: json or msgpack")
	cmd.Flags().StringSliceVarP(&flags.Interests, "interests", "i", nil, "comma-separated interests")
	cmd.Flags().StringVarP(&flags.Gender, "gender", "g", "", "male, female, other or any")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(def.Mode), "video or text")
	cmd.Flags().StringSliceVar(&flags.STUN, "stun", def.STUN, "STUN server URLs")
	cmd.Flags().StringVar(&flags.TURN, "turn", "", "TURN host (credentials via WHODIS_TURN_USER / WHODIS_TURN_PASS)")
	cmd.Flags().DurationVar(&flags.HandshakeTimeout, "handshake-timeout", def.HandshakeTimeout, "give up on a partner after this long (0 = never)")
	cmd.Flags().DurationVar(&flags.CaptureInterval, "capture-interval", def.CaptureInterval, "session snapshot interval while connected (0 = off)")
	return cmd
}

// runJoin wires signaling, media and transport into a session and runs it
// until Ctrl+C, /quit or the server going away.
func runJoin(parent context.Context, cfg *config.Client) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return err
	}
	util.LogInfo("connecting to %s", cfg.ServerURL)
	conn, err := signaling.Dial(ctx, cfg.ServerURL, codec)
	if err != nil {
		return err
	}
	defer conn.Close()

	var src *media.Source
	if cfg.Mode == config.ModeVideo {
		src, err = media.Acquire(ctx, media.Options{Audio: true, Video: true, SilentAudio: true})
		if err != nil {
			util.LogWarning("continuing without local media: %v", err)
		} else {
			defer src.Stop()
		}
	}

	var (
		online  atomic.Int64
		partner atomic.Pointer[protocol.Criteria]
		sess    *session.Session
	)

	snapshot := capture.NewTrigger(ctx, cfg.CaptureInterval, func(context.Context) {
		p := partner.Load()
		if p == nil {
			return
		}
		util.Log(util.LevelInfo, "session snapshot",
			"state", sess.State(), "partner", strings.Join(p.Interests, ","), "online", online.Load())
	})
	defer snapshot.Stop()

	tcfg := transport.Config{
		STUN:     cfg.STUN,
		TURN:     cfg.TURNServers(),
		TURNUser: cfg.TURNUser,
		TURNPass: cfg.TURNPass,
	}

	sess = session.New(session.Options{
		Signaler:         conn,
		HandshakeTimeout: cfg.HandshakeTimeout,
		NewPeer: func(events session.PeerEvents) (session.Peer, error) {
			var local []webrtc.TrackLocal
			if src != nil {
				local = src.Tracks()
			}
			return transport.New(ctx, tcfg, local, events)
		},
		Hooks: session.Hooks{
			OnState: func(state session.State) {
				snapshot.OnState(state)
				printState(state)
			},
			OnICEState: func(state session.ICEState) {
				util.LogDebug("ICE: %s", state)
			},
			OnPartner: func(c protocol.Criteria) {
				partner.Store(&c)
				printPartner(c)
			},
			OnTrack: func(kind, id string) {
				util.LogInfo("receiving partner's %s", kind)
			},
			OnChat: func(text string) {
				pterm.Println(pterm.Cyan("Stranger: ") + text)
			},
			OnTyping: func(typing bool) {
				if typing {
					pterm.Println(pterm.Gray("Stranger is typing..."))
				}
			},
			OnOnlineCount: func(n int) {
				online.Store(int64(n))
				util.LogDebug("%d online", n)
			},
		},
	})

	criteria := cfg.Criteria()
	con := &console{
		sess:     sess,
		src:      src,
		criteria: criteria,
		online:   func() int64 { return online.Load() },
		quit:     cancel,
	}
	go con.run(ctx, os.Stdin)

	sess.Start(criteria)
	err = sess.Run(ctx, conn.Incoming())
	switch {
	case errors.Is(err, session.ErrSignalingClosed):
		if cerr := conn.Err(); cerr != nil {
			return cerr
		}
		return errors.New("server closed the connection")
	case errors.Is(err, context.Canceled):
		util.LogInfo("bye")
		return nil
	}
	return err
}

func printState(state session.State) {
	switch state {
	case session.Matching:
		pterm.Info.Println("Looking for someone to talk to...")
	case session.Connecting:
		pterm.Info.Println("Connecting...")
	case session.Connected:
		pterm.Success.Println("Connected. Say hi! (/help for commands)")
	case session.Idle:
		pterm.Info.Println("Not chatting. /start to look for someone.")
	}
}

func printPartner(c protocol.Criteria) {
	interests := "none"
	if len(c.Interests) > 0 {
		interests = strings.Join(c.Interests, ", ")
	}
	gender := c.Gender
	if gender == "" {
		gender = protocol.GenderAny
	}
	pterm.Success.Printfln("Matched! Stranger's interests: %s (gender: %s)", interests, gender)
}
