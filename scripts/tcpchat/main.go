package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lanchat/lanchat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("tcpchat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:8888", "server address")
	user := flag.String("user", "cli-user", "username")
	to := flag.String("to", "", "default recipient for plain lines")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	send := func(env *proto.Envelope) {
		if writeErr := proto.Write(conn, env); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	send(&proto.Envelope{
		Type:    proto.KindLogin,
		Sender:  *user,
		Content: proto.LoginContent{Username: *user},
	})

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println("Plain lines go to -to. Commands: /msg <user> <text>, /group <id> <text>, /quit")

	go func() {
		defer cancel()
		readLoop(conn, send)
	}()

	writeLoop(ctx, *user, *to, send)

	send(&proto.Envelope{Type: proto.KindLogout, Sender: *user})
	stop()
	cancel()
	return nil
}

func readLoop(conn net.Conn, send func(*proto.Envelope)) {
	for {
		env, err := proto.Read(conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				fmt.Println("server closed the connection")
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch env.Type {
		case proto.KindLoginResponse:
			var resp proto.LoginResponseContent
			if err := env.ContentAs(&resp); err != nil {
				log.Printf("decode login response: %v", err)
				continue
			}
			if !resp.Success {
				fmt.Printf("login rejected: %s\n", resp.Error)
				return
			}
			names := make([]string, 0, len(resp.Users))
			for _, u := range resp.Users {
				names = append(names, fmt.Sprintf("%s(%s)", u.Username, u.Status))
			}
			fmt.Printf("logged in, users: %s\n", strings.Join(names, ", "))
		case proto.KindPrivateMessage:
			text, _ := env.TextContent()
			fmt.Printf("[%s] %s\n", env.Sender, text)
		case proto.KindGroupMessage:
			text, _ := env.TextContent()
			fmt.Printf("[group %s] %s: %s\n", env.Recipient, env.Sender, text)
		case proto.KindUserStatus:
			var st proto.UserStatusContent
			if err := env.ContentAs(&st); err == nil {
				fmt.Printf("* %s is %s\n", st.Username, st.Status)
			}
		case proto.KindMessageDelivered:
			fmt.Printf("* delivered %s\n", env.MessageID)
		case proto.KindError:
			var ec proto.ErrorContent
			if err := env.ContentAs(&ec); err == nil {
				fmt.Printf("! %s: %s\n", ec.Code, ec.Message)
			}
		case proto.KindPing:
			send(&proto.Envelope{Type: proto.KindPong})
		default:
			fmt.Printf("<%s> %+v\n", env.Type, env.Content)
		}
	}
}

func writeLoop(ctx context.Context, user, defaultTo string, send func(*proto.Envelope)) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			kind := proto.KindPrivateMessage
			recipient := defaultTo
			switch {
			case text == "/quit":
				return
			case strings.HasPrefix(text, "/msg "):
				parts := strings.SplitN(text, " ", 3)
				if len(parts) < 3 {
					fmt.Println("usage: /msg <user> <text>")
					continue
				}
				recipient, text = parts[1], parts[2]
			case strings.HasPrefix(text, "/group "):
				parts := strings.SplitN(text, " ", 3)
				if len(parts) < 3 {
					fmt.Println("usage: /group <id> <text>")
					continue
				}
				kind, recipient, text = proto.KindGroupMessage, parts[1], parts[2]
			}
			if recipient == "" {
				fmt.Println("no recipient: pass -to or use /msg")
				continue
			}

			send(&proto.Envelope{
				Type:      kind,
				Sender:    user,
				Recipient: recipient,
				Content:   text,
			})
		}
	}
}
