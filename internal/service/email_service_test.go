package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chorequest/internal/logger"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailServiceDisabled(t *testing.T) {
	svc, err := NewEmailService(context.Background(), "us-east-1", "", "ChoreQuest", logger.NewNop())
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())
	assert.NoError(t, svc.SendEmail(context.Background(), "parent@example.com", "s", "<p>h</p>", "t"))
}

func TestEmailServiceSend(t *testing.T) {
	ses := &fakeSES{}
	svc := newEmailService(ses, "digest@chorequest.app", "ChoreQuest", logger.NewNop())

	require.NoError(t, svc.SendEmail(context.Background(), "parent@example.com", "Weekly digest", "<p>hi</p>", "hi"))
	require.Len(t, ses.inputs, 1)

	in := ses.inputs[0]
	assert.Equal(t, "ChoreQuest <digest@chorequest.app>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"parent@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Weekly digest", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "hi", aws.ToString(in.Content.Simple.Body.Text.Data))
}

func TestEmailServiceSendError(t *testing.T) {
	svc := newEmailService(&fakeSES{err: errors.New("throttled")}, "digest@chorequest.app", "", logger.NewNop())
	err := svc.SendEmail(context.Background(), "parent@example.com", "s", "h", "t")
	assert.ErrorContains(t, err, "throttled")
}
