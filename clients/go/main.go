// Command line client for the chat relay.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/bhattabhuwan/backend-chat/clients/go/chat"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHAT_URL")
	client := chat.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "stats":
		resp, err := client.Stats()
		exitOnError(err)
		printJSON(resp)

	case "history":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: chat history <user1> <user2>")
			os.Exit(1)
		}
		user1 := parseID(os.Args[2])
		user2 := parseID(os.Args[3])
		entries, err := client.History(user1, user2)
		exitOnError(err)
		for _, e := range entries {
			fmt.Printf("[%s] #%d %d -> %d: %s\n", e.Timestamp, e.ID, e.SenderID, e.ReceiverID, e.Message)
		}

	case "send":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: chat send <sender> <receiver> <message>")
			os.Exit(1)
		}
		sender := parseID(os.Args[2])
		receiver := parseID(os.Args[3])

		session, err := client.Connect(sender)
		exitOnError(err)
		defer session.Close()

		exitOnError(session.Join(sender, receiver, fmt.Sprintf("user-%d", sender)))
		exitOnError(session.Send(sender, receiver, os.Args[4]))

		// Wait for the delivery acknowledgement
		for {
			ev, err := session.Next()
			exitOnError(err)
			if ev.Event == chat.EventMessageSent {
				var ack chat.DeliveryAck
				exitOnError(json.Unmarshal(ev.Data, &ack))
				fmt.Printf("delivered: message %d at %s\n", ack.MessageID, ack.Timestamp)
				return
			}
			if ev.Event == chat.EventError {
				fmt.Fprintf(os.Stderr, "relay error: %s\n", ev.Data)
				os.Exit(1)
			}
		}

	case "listen":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: chat listen <user> <peer>")
			os.Exit(1)
		}
		user := parseID(os.Args[2])
		peer := parseID(os.Args[3])

		session, err := client.Connect(user)
		exitOnError(err)
		defer session.Close()

		exitOnError(session.Join(user, peer, fmt.Sprintf("user-%d", user)))
		for {
			ev, err := session.Next()
			exitOnError(err)
			fmt.Printf("%s %s\n", ev.Event, ev.Data)
		}

	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: chat <command> [args]

Commands:
  health                        Check server health
  stats                         Show relay statistics
  history <user1> <user2>       Print the conversation between two users
  send <sender> <receiver> <m>  Send one message and wait for the ack
  listen <user> <peer>          Join the room with <peer> and print events

Environment:
  CHAT_URL   Base URL of the relay (default http://localhost:8080)`)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid participant id %q\n", s)
		os.Exit(1)
	}
	return id
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
