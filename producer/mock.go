package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	quotedTopic = regexp.MustCompile(`"([^"]+)"`)
	aboutTopic  = regexp.MustCompile(`about\s+([^.\n]+)`)
	topicLabel  = regexp.MustCompile(`(?i)topic[:\s]+([^.\n]+)`)
)

// TopicFromPrompt returns the first quoted phrase of prompt, or the text after
// "about" or "topic:", or "" when none is present.
func TopicFromPrompt(prompt string) string {
	for _, re := range []*regexp.Regexp{quotedTopic, aboutTopic, topicLabel} {
		if m := re.FindStringSubmatch(prompt); m != nil {
			if t := strings.TrimSpace(m[1]); t != "" {
				return t
			}
		}
	}
	return ""
}

func (c *Client) mock(ctx context.Context, prompt string) string {
	if c.cfg.MockDelay > 0 {
		t := time.NewTimer(c.cfg.MockDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	if strings.Contains(prompt, `"prompts"`) {
		return MockPrompts(TopicFromPrompt(prompt))
	}
	return MockEbook(TopicFromPrompt(prompt))
}

type mockSection struct {
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Subheadings  []string `json:"subheadings"`
	Examples     []string `json:"examples"`
	KeyTakeaways []string `json:"keyTakeaways"`
}

// MockEbook builds a two-section document about topic as JSON text.
func MockEbook(topic string) string {
	if topic == "" {
		topic = "the topic"
	}
	doc := struct {
		Title       string        `json:"title"`
		Description string        `json:"description"`
		Sections    []mockSection `json:"sections"`
	}{
		Title:       "The Complete Guide to " + topic,
		Description: fmt.Sprintf("A comprehensive guide to mastering %s. Perfect for beginners and experts alike.", topic),
		Sections: []mockSection{
			{
				Title: "Introduction to " + topic,
				Content: fmt.Sprintf("Welcome to the world of %[1]s! This guide will help you understand the fundamentals and advanced concepts.\n\n"+
					"We'll cover everything from basic principles to practical strategies you can apply right away. "+
					"Each section builds on the previous one, creating a solid foundation of understanding.", topic),
				Subheadings: []string{"Getting Started", "Core Concepts", "Practical Applications"},
				Examples: []string{
					"A real-world scenario showing how to apply these concepts",
					"Step-by-step guide for implementing the strategies",
					"Case study demonstrating successful implementation",
				},
				KeyTakeaways: []string{
					"Understand the fundamental principles of " + topic,
					"Learn practical strategies you can implement immediately",
					"Gain confidence in applying these concepts in real situations",
				},
			},
			{
				Title: fmt.Sprintf("Advanced %s Strategies", topic),
				Content: fmt.Sprintf("Now that you understand the basics, let's dive into more advanced strategies for mastering %[1]s.\n\n"+
					"We'll examine complex scenarios and provide detailed solutions for each. "+
					"Advanced %[1]s requires a deeper understanding of the underlying principles and the ability to adapt.", topic),
				Subheadings: []string{"Advanced Techniques", "Problem Solving", "Optimization"},
				Examples: []string{
					"Complex problem-solving scenario with detailed analysis",
					"Optimization techniques for maximum efficiency",
					"Advanced implementation strategies",
				},
				KeyTakeaways: []string{
					"Master advanced techniques and strategies",
					"Develop problem-solving skills for complex situations",
					"Learn optimization methods for better results",
				},
			},
		},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

// MockPrompts builds a small {"prompts": [...]} object about topic.
func MockPrompts(topic string) string {
	if topic == "" {
		topic = "the subject"
	}
	prompts := []string{
		fmt.Sprintf("Create engaging content about %s", topic),
		fmt.Sprintf("Explain %s to a complete beginner in five short steps.", topic),
		fmt.Sprintf("List 10 content ideas about %s that could grow an audience fast.", topic),
		fmt.Sprintf("Write a viral short-video script teaching one surprising fact about %s. Include hook + steps + CTA.", topic),
		fmt.Sprintf("Give 5 psychological reasons people care about %s.", topic),
	}
	b, _ := json.Marshal(map[string][]string{"prompts": prompts})
	return string(b)
}
