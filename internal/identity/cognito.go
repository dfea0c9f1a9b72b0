package identity

import (
	"context"
	"errors"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
)

// CognitoAPI is the slice of the Cognito client the adapter uses.
type CognitoAPI interface {
	AdminGetUser(ctx context.Context, params *cognito.AdminGetUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminGetUserOutput, error)
	ListUsers(ctx context.Context, params *cognito.ListUsersInput, optFns ...func(*cognito.Options)) (*cognito.ListUsersOutput, error)
	AdminCreateUser(ctx context.Context, params *cognito.AdminCreateUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminCreateUserOutput, error)
	AdminDeleteUser(ctx context.Context, params *cognito.AdminDeleteUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminDeleteUserOutput, error)
	AdminEnableUser(ctx context.Context, params *cognito.AdminEnableUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminEnableUserOutput, error)
	AdminDisableUser(ctx context.Context, params *cognito.AdminDisableUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminDisableUserOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cognito.AdminUpdateUserAttributesInput, optFns ...func(*cognito.Options)) (*cognito.AdminUpdateUserAttributesOutput, error)
	AdminAddUserToGroup(ctx context.Context, params *cognito.AdminAddUserToGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminAddUserToGroupOutput, error)
	AdminRemoveUserFromGroup(ctx context.Context, params *cognito.AdminRemoveUserFromGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminRemoveUserFromGroupOutput, error)
	AdminListGroupsForUser(ctx context.Context, params *cognito.AdminListGroupsForUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminListGroupsForUserOutput, error)
	AdminConfirmSignUp(ctx context.Context, params *cognito.AdminConfirmSignUpInput, optFns ...func(*cognito.Options)) (*cognito.AdminConfirmSignUpOutput, error)
	AdminSetUserPassword(ctx context.Context, params *cognito.AdminSetUserPasswordInput, optFns ...func(*cognito.Options)) (*cognito.AdminSetUserPasswordOutput, error)
}

// CognitoProvider implements Provider against a Cognito user pool.
type CognitoProvider struct {
	client     CognitoAPI
	userPoolID string
}

// NewCognitoProvider constructs the adapter.
func NewCognitoProvider(client CognitoAPI, userPoolID string) *CognitoProvider {
	return &CognitoProvider{client: client, userPoolID: userPoolID}
}

func (p *CognitoProvider) GetUser(ctx context.Context, email string) (*domain.IdentityUser, error) {
	out, err := p.client.AdminGetUser(ctx, &cognito.AdminGetUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}

	attrs := attributesToMap(out.UserAttributes)
	user := &domain.IdentityUser{
		Email:        attrValue(attrs, domain.AttrEmail, aws.ToString(out.Username)),
		Enabled:      out.Enabled,
		Confirmed:    out.UserStatus == types.UserStatusTypeConfirmed,
		Created:      aws.ToTime(out.UserCreateDate),
		LastModified: aws.ToTime(out.UserLastModifiedDate),
		Attributes:   attrs,
	}
	return user, nil
}

func (p *CognitoProvider) ListUsers(ctx context.Context, limit int32, cursor string) ([]domain.IdentityUser, string, error) {
	input := &cognito.ListUsersInput{
		UserPoolId: aws.String(p.userPoolID),
		Limit:      aws.Int32(limit),
	}
	if cursor != "" {
		input.PaginationToken = aws.String(cursor)
	}

	out, err := p.client.ListUsers(ctx, input)
	if err != nil {
		return nil, "", err
	}

	users := make([]domain.IdentityUser, 0, len(out.Users))
	for _, u := range out.Users {
		attrs := attributesToMap(u.Attributes)
		users = append(users, domain.IdentityUser{
			Email:        attrValue(attrs, domain.AttrEmail, aws.ToString(u.Username)),
			Enabled:      u.Enabled,
			Confirmed:    u.UserStatus == types.UserStatusTypeConfirmed,
			Created:      aws.ToTime(u.UserCreateDate),
			LastModified: aws.ToTime(u.UserLastModifiedDate),
			Attributes:   attrs,
		})
	}
	return users, aws.ToString(out.PaginationToken), nil
}

func (p *CognitoProvider) CreateUser(ctx context.Context, input CreateUserInput) (*domain.IdentityUser, error) {
	createInput := &cognito.AdminCreateUserInput{
		UserPoolId:     aws.String(p.userPoolID),
		Username:       aws.String(input.Email),
		UserAttributes: mapToAttributes(input.Attributes),
	}
	if !input.SendWelcomeEmail {
		// Leaving MessageAction unset lets the pool send its invitation.
		createInput.MessageAction = types.MessageActionTypeSuppress
	}
	if input.TemporaryPassword != "" {
		createInput.TemporaryPassword = aws.String(input.TemporaryPassword)
	}

	out, err := p.client.AdminCreateUser(ctx, createInput)
	if err != nil {
		return nil, err
	}

	created := &domain.IdentityUser{Email: input.Email, Attributes: input.Attributes}
	if out.User != nil {
		created.Enabled = out.User.Enabled
		created.Created = aws.ToTime(out.User.UserCreateDate)
		created.LastModified = aws.ToTime(out.User.UserLastModifiedDate)
	}
	return created, nil
}

func (p *CognitoProvider) DeleteUser(ctx context.Context, email string) error {
	_, err := p.client.AdminDeleteUser(ctx, &cognito.AdminDeleteUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
	})
	return err
}

func (p *CognitoProvider) EnableUser(ctx context.Context, email string) error {
	_, err := p.client.AdminEnableUser(ctx, &cognito.AdminEnableUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
	})
	return err
}

func (p *CognitoProvider) DisableUser(ctx context.Context, email string) error {
	_, err := p.client.AdminDisableUser(ctx, &cognito.AdminDisableUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
	})
	return err
}

func (p *CognitoProvider) UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error {
	if len(attrs) == 0 {
		return nil
	}
	_, err := p.client.AdminUpdateUserAttributes(ctx, &cognito.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(p.userPoolID),
		Username:       aws.String(email),
		UserAttributes: mapToAttributes(attrs),
	})
	return err
}

func (p *CognitoProvider) AddToGroup(ctx context.Context, email, group string) error {
	_, err := p.client.AdminAddUserToGroup(ctx, &cognito.AdminAddUserToGroupInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
		GroupName:  aws.String(group),
	})
	return err
}

func (p *CognitoProvider) RemoveFromGroup(ctx context.Context, email, group string) error {
	_, err := p.client.AdminRemoveUserFromGroup(ctx, &cognito.AdminRemoveUserFromGroupInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
		GroupName:  aws.String(group),
	})
	return err
}

func (p *CognitoProvider) ListGroups(ctx context.Context, email string) ([]string, error) {
	out, err := p.client.AdminListGroupsForUser(ctx, &cognito.AdminListGroupsForUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return nil, err
	}
	groups := make([]string, 0, len(out.Groups))
	for _, g := range out.Groups {
		if name := aws.ToString(g.GroupName); name != "" {
			groups = append(groups, name)
		}
	}
	return groups, nil
}

func (p *CognitoProvider) ConfirmUser(ctx context.Context, email string) error {
	_, err := p.client.AdminConfirmSignUp(ctx, &cognito.AdminConfirmSignUpInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
	})
	return err
}

func (p *CognitoProvider) SetTemporaryPassword(ctx context.Context, email, password string) error {
	_, err := p.client.AdminSetUserPassword(ctx, &cognito.AdminSetUserPasswordInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(email),
		Password:   aws.String(password),
		Permanent:  false,
	})
	return err
}

func attributesToMap(attrs []types.AttributeType) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		name := aws.ToString(attr.Name)
		value := aws.ToString(attr.Value)
		if name != "" && value != "" {
			out[name] = value
		}
	}
	return out
}

func mapToAttributes(attrs map[string]string) []types.AttributeType {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.AttributeType, 0, len(names))
	for _, name := range names {
		out = append(out, types.AttributeType{
			Name:  aws.String(name),
			Value: aws.String(attrs[name]),
		})
	}
	return out
}

func attrValue(attrs map[string]string, name, fallback string) string {
	if v := attrs[name]; v != "" {
		return v
	}
	return fallback
}
