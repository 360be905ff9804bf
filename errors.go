package main

import "fmt"

// Failure kinds raised by registry and channel operations. Handlers
// return them and the dispatcher translates each kind into the numeric
// reply it corresponds to. See replyCommandError in commands.go.

// NoSuchUserError means a target nickname resolved to no user.
type NoSuchUserError struct {
	Target string
}

func (e NoSuchUserError) Error() string {
	return fmt.Sprintf("no such user: %s", e.Target)
}

// NoSuchChannelError means a channel lookup found nothing.
type NoSuchChannelError struct {
	Name string
}

func (e NoSuchChannelError) Error() string {
	return fmt.Sprintf("no such channel: %s", e.Name)
}

// InvalidChannelError means a channel name failed validation, so the
// channel could not be created.
type InvalidChannelError struct {
	Name string
}

func (e InvalidChannelError) Error() string {
	return fmt.Sprintf("invalid channel name: %s", e.Name)
}

// InsufficientParamsError means a command arrived with fewer parameters
// than it requires.
type InsufficientParamsError struct {
	Command string
}

func (e InsufficientParamsError) Error() string {
	return fmt.Sprintf("not enough parameters: %s", e.Command)
}

// BadKeyError means a join was refused because the channel key did not
// match.
type BadKeyError struct {
	Channel string
}

func (e BadKeyError) Error() string {
	return fmt.Sprintf("bad key for channel: %s", e.Channel)
}

// ChannelFullError means a join was refused because the channel is at
// its member limit.
type ChannelFullError struct {
	Channel string
}

func (e ChannelFullError) Error() string {
	return fmt.Sprintf("channel is full: %s", e.Channel)
}

// NeedChanOpError means the user tried to change a channel they do not
// have ops on.
type NeedChanOpError struct {
	Channel string
}

func (e NeedChanOpError) Error() string {
	return fmt.Sprintf("channel operator status required: %s", e.Channel)
}

// NickInUseError means a nickname is already registered.
type NickInUseError struct {
	Nick string
}

func (e NickInUseError) Error() string {
	return fmt.Sprintf("nickname in use: %s", e.Nick)
}

// UsersDontMatchError means a user tried to view or change modes on a
// user other than themselves.
type UsersDontMatchError struct{}

func (e UsersDontMatchError) Error() string {
	return "cannot change mode for other users"
}
