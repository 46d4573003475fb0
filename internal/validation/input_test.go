package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsername(t *testing.T) {
	for _, v := range []string{"abc", "john_doe", "Dr_Smith2", strings.Repeat("a", 50)} {
		assert.True(t, Username(v), v)
	}
	for _, v := range []string{"", "ab", "john doe", "jöhn", "john-doe", strings.Repeat("a", 51)} {
		assert.False(t, Username(v), v)
	}
}

func TestEmail(t *testing.T) {
	for _, v := range []string{"a@b.edu", "john.doe+x@uni.example.edu"} {
		assert.True(t, Email(v), v)
	}
	for _, v := range []string{"", "a@b", "John <a@b.edu>", "a b@c.edu", "@b.edu"} {
		assert.False(t, Email(v), v)
	}
}

func TestCourseFields(t *testing.T) {
	assert.True(t, CourseCode("CS-101"))
	assert.True(t, CourseCode("M2"))
	assert.False(t, CourseCode("cs-101"))
	assert.False(t, CourseCode("C"))
	assert.False(t, CourseCode("CS 101"))
	assert.False(t, CourseCode(strings.Repeat("A", 21)))

	assert.True(t, CourseName("Intro to CS"))
	assert.False(t, CourseName("  ab "))
	assert.False(t, CourseName(strings.Repeat("x", 101)))

	assert.True(t, Description(""))
	assert.False(t, Description(strings.Repeat("x", 501)))

	assert.True(t, MaxSeats(1))
	assert.True(t, MaxSeats(500))
	assert.False(t, MaxSeats(0))
	assert.False(t, MaxSeats(501))
}

func TestOTPAndID(t *testing.T) {
	assert.True(t, OTP("042317"))
	assert.False(t, OTP("42317"))
	assert.False(t, OTP("12345a"))

	assert.True(t, ID("5b0e7c4a-4a83-4b0f-9d6e-0b9d6f0f6a11"))
	assert.False(t, ID("5b0e7c4a4a834b0f9d6e0b9d6f0f6a11"))
	assert.False(t, ID("not-an-id"))
}
