package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/youhedge/hedgetv/internal/models"
)

var (
	_ list.Item = channelItem{}
	_ list.Item = videoItem{}
)

// channelItem wraps [models.Channel] to implement [list.Item].
type channelItem struct {
	channel models.Channel
}

func (i channelItem) FilterValue() string { return i.channel.Title }
func (i channelItem) Title() string       { return i.channel.Title }
func (i channelItem) Description() string {
	if i.channel.Description == "" {
		return "no description"
	}
	return i.channel.Description
}

// videoItem wraps [models.PlaylistItem] to implement [list.Item].
type videoItem struct {
	video models.PlaylistItem
}

func (i videoItem) FilterValue() string { return i.video.Title }
func (i videoItem) Title() string       { return i.video.Title }
func (i videoItem) Description() string {
	if i.video.Description == "" {
		return fmt.Sprintf("video %s", i.video.VideoID)
	}
	return i.video.Description
}
