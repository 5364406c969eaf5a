// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// kcpws-relay is a demonstration binary gluing the pool and wsframe packages
// to a real transport: kcp-go carries the wire traffic, smux multiplexes
// logical streams over one KCP session, and each stream speaks RFC 6455
// WebSocket framing, with every frame's payload backed by a pool-managed
// buffer. It echoes Text/Binary frames and answers Ping/Close per protocol.
package main

import (
	"crypto/sha1"
	"log"
	"net"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	kcp "github.com/xtaci/kcp-go/v5"
	"github.com/xtaci/kcpws/pool"
	"github.com/xtaci/kcpws/std"
	"github.com/xtaci/kcpws/wsframe"
	"github.com/xtaci/smux"
)

// maxSmuxVer bounds the smux protocol versions this relay will negotiate.
const maxSmuxVer = 2

// pbkdfSalt mirrors the teacher's fixed PBKDF2 salt for deriving the shared
// session key from the pre-shared secret.
const pbkdfSalt = "kcp-go"

// relayPoolID is the pool slot this binary's streams draw read/write
// buffers from; an application embedding multiple independent relays would
// give each one a distinct PoolID.
const relayPoolID = pool.DefaultPoolID

var version = "SELFBUILD"

func main() {
	if version == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	// Engage backpressure on the relay's pool: once outstanding read/write
	// buffers cross the configured ceiling, new reads block via
	// handle.Wait until the driver admits room again.
	relayPoolID.SetPoolSize(64 << 20)
	relayPoolID.SetSpawnFn(func(task func()) { go task() })

	app := cli.NewApp()
	app.Name = "kcpws-relay"
	app.Usage = "WebSocket-framed relay over KCP/smux"
	app.Version = version
	app.Commands = []cli.Command{
		serverCommand(),
		clientCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "key", Value: "it's a secrect", Usage: "pre-shared secret", EnvVar: "KCPWS_KEY"},
		cli.StringFlag{Name: "crypt", Value: "aes", Usage: "aes, aes-128, aes-192, aes-128-gcm, salsa20, blowfish, twofish, cast5, 3des, tea, xtea, xor, sm4, none"},
		cli.StringFlag{Name: "mode", Value: "fast", Usage: "profiles: fast3, fast2, fast, normal"},
		cli.IntFlag{Name: "mtu", Value: 1350, Usage: "maximum transmission unit for UDP packets"},
		cli.IntFlag{Name: "sndwnd", Value: 128, Usage: "send window size (packets)"},
		cli.IntFlag{Name: "rcvwnd", Value: 512, Usage: "receive window size (packets)"},
		cli.IntFlag{Name: "datashard,ds", Value: 10, Usage: "reed-solomon data shards"},
		cli.IntFlag{Name: "parityshard,ps", Value: 3, Usage: "reed-solomon parity shards"},
		cli.BoolFlag{Name: "nocomp", Usage: "disable snappy compression of the KCP stream"},
		cli.IntFlag{Name: "smuxver", Value: 2, Usage: "smux protocol version"},
		cli.IntFlag{Name: "smuxbuf", Value: 4194304, Usage: "smux receive buffer, bytes"},
		cli.IntFlag{Name: "streambuf", Value: 2097152, Usage: "per-stream buffer, bytes (smux v2+)"},
		cli.IntFlag{Name: "framesize", Value: 8192, Usage: "smux max frame size"},
		cli.IntFlag{Name: "keepalive", Value: 10, Usage: "seconds between smux heartbeats"},
		cli.IntFlag{Name: "maxframe", Value: 1 << 20, Usage: "maximum WebSocket frame payload accepted"},
		cli.StringFlag{Name: "c", Usage: "load a JSON config, overriding the flags above"},
		cli.BoolFlag{Name: "quiet", Usage: "suppress per-stream open/close logging"},
		cli.StringFlag{Name: "snmplog", Usage: "periodically append KCP SNMP counters to this CSV path (file name expanded as a Go time layout)"},
		cli.IntFlag{Name: "snmpperiod", Value: 60, Usage: "seconds between snmplog writes"},
	}
}

func buildConfig(c *cli.Context) (*Config, error) {
	cfg := &Config{
		Listen:      c.String("listen"),
		Remote:      c.String("remote"),
		Key:         c.String("key"),
		Crypt:       c.String("crypt"),
		Mode:        c.String("mode"),
		MTU:         c.Int("mtu"),
		SndWnd:      c.Int("sndwnd"),
		RcvWnd:      c.Int("rcvwnd"),
		DataShard:   c.Int("datashard"),
		ParityShard: c.Int("parityshard"),
		NoComp:      c.Bool("nocomp"),
		SmuxVer:     c.Int("smuxver"),
		SmuxBuf:     c.Int("smuxbuf"),
		StreamBuf:   c.Int("streambuf"),
		FrameSize:   c.Int("framesize"),
		KeepAlive:   c.Int("keepalive"),
		MaxFrame:    c.Int("maxframe"),
		Quiet:       c.Bool("quiet"),
		SnmpLog:     c.String("snmplog"),
		SnmpPeriod:  c.Int("snmpperiod"),
	}
	if path := c.String("c"); path != "" {
		if err := parseJSONConfig(cfg, path); err != nil {
			return nil, errors.Wrap(err, "parseJSONConfig")
		}
	}
	applyMode(cfg)
	return cfg, nil
}

// deriveBlockCrypt expands the pre-shared key via PBKDF2 and selects the
// requested cipher, reporting back whichever name actually got used (an
// unknown or failing choice falls back to aes).
func deriveBlockCrypt(key, cipher string) (kcp.BlockCrypt, string, error) {
	pass := pbkdf2.Key([]byte(key), []byte(pbkdfSalt), 4096, 32, sha1.New)
	block, effective := std.SelectBlockCrypt(cipher, pass)
	if block == nil && effective != "null" {
		return nil, effective, errors.New("SelectBlockCrypt: no cipher constructed")
	}
	return block, effective, nil
}

func buildSmuxConfig(cfg *Config) (*smux.Config, error) {
	return std.BuildSmuxConfig(cfg.SmuxVer, cfg.SmuxBuf, cfg.StreamBuf, cfg.FrameSize, cfg.KeepAlive)
}

func serverCommand() cli.Command {
	return cli.Command{
		Name:  "server",
		Usage: "accept KCP connections and echo WebSocket frames",
		Flags: append(commonFlags(),
			cli.StringFlag{Name: "listen,l", Value: ":29900", Usage: "KCP listen address"},
		),
		Action: func(c *cli.Context) error {
			return runServer(c)
		},
	}
}

func clientCommand() cli.Command {
	return cli.Command{
		Name:  "client",
		Usage: "dial a kcpws-relay server and send one WebSocket message",
		Flags: append(commonFlags(),
			cli.StringFlag{Name: "remote,r", Value: "127.0.0.1:29900", Usage: "KCP server address"},
		),
		Action: func(c *cli.Context) error {
			return runClient(c)
		},
	}
}

func runServer(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	if cfg.SmuxVer > maxSmuxVer {
		return errors.Errorf("unsupported smux version: %d", cfg.SmuxVer)
	}

	block, effectiveCrypt, err := deriveBlockCrypt(cfg.Key, cfg.Crypt)
	if err != nil {
		return errors.Wrap(err, "deriveBlockCrypt")
	}
	cfg.Crypt = effectiveCrypt
	log.Println("encryption:", cfg.Crypt)

	go std.SnmpLogger(cfg.SnmpLog, cfg.SnmpPeriod)

	lis, err := kcp.ListenWithOptions(cfg.Listen, block, cfg.DataShard, cfg.ParityShard)
	if err != nil {
		return errors.Wrap(err, "ListenWithOptions")
	}
	defer lis.Close()
	log.Println("listening on", lis.Addr())

	smuxConfig, err := buildSmuxConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "buildSmuxConfig")
	}

	ref := relayPoolID.PoolRef()

	for {
		conn, err := lis.AcceptKCP()
		if err != nil {
			return errors.Wrap(err, "AcceptKCP")
		}
		conn.SetStreamMode(true)
		conn.SetWriteDelay(false)
		conn.SetNoDelay(cfg.NoDelay, cfg.Interval, cfg.Resend, cfg.NoCongest)
		conn.SetWindowSize(cfg.SndWnd, cfg.RcvWnd)
		conn.SetMtu(cfg.MTU)

		go acceptSession(conn, smuxConfig, cfg, ref)
	}
}

func acceptSession(conn *kcp.UDPSession, smuxConfig *smux.Config, cfg *Config, ref *pool.PoolRef) {
	var rw net.Conn = conn
	if !cfg.NoComp {
		rw = std.NewCompStream(conn)
	}

	session, err := smux.Server(rw, smuxConfig)
	if err != nil {
		log.Println("smux.Server:", err)
		return
	}
	defer session.Close()

	if !cfg.Quiet {
		color.Green("session open: %v -> %v", conn.RemoteAddr(), conn.LocalAddr())
	}

	for {
		stream, err := session.AcceptStream()
		if err != nil {
			return
		}
		go serveStream(stream, ref, cfg, true)
	}
}

func runClient(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}

	block, effectiveCrypt, err := deriveBlockCrypt(cfg.Key, cfg.Crypt)
	if err != nil {
		return errors.Wrap(err, "deriveBlockCrypt")
	}
	cfg.Crypt = effectiveCrypt
	log.Println("encryption:", cfg.Crypt)

	conn, err := kcp.DialWithOptions(cfg.Remote, block, cfg.DataShard, cfg.ParityShard)
	if err != nil {
		return errors.Wrap(err, "DialWithOptions")
	}
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(cfg.NoDelay, cfg.Interval, cfg.Resend, cfg.NoCongest)
	conn.SetWindowSize(cfg.SndWnd, cfg.RcvWnd)
	conn.SetMtu(cfg.MTU)

	var rw net.Conn = conn
	if !cfg.NoComp {
		rw = std.NewCompStream(conn)
	}

	smuxConfig, err := buildSmuxConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "buildSmuxConfig")
	}

	session, err := smux.Client(rw, smuxConfig)
	if err != nil {
		return errors.Wrap(err, "smux.Client")
	}
	defer session.Close()

	stream, err := session.OpenStream()
	if err != nil {
		return errors.Wrap(err, "OpenStream")
	}

	ref := relayPoolID.PoolRef()
	var dst []byte
	wsframe.WriteMessage(&dst, []byte("hello kcpws"), wsframe.Text, true, true)
	if _, err := stream.Write(dst); err != nil {
		return errors.Wrap(err, "Write")
	}

	serveStream(stream, ref, cfg, false)
	return nil
}
