package sqlinline

const QSelectProfileByID = `--sql b447855a-8a8d-49a4-a995-d9793337cfcd
select
    id::text,
    coalesce(email, '') as email,
    plan_type,
    daily_limit,
    credits_remaining,
    created_at,
    updated_at
from profiles
where id = $1::uuid
limit 1;
`

const QSelectProfileByEmail = `--sql a514d2c3-d20a-4b9d-87d3-3b4d75700a70
select
    id::text,
    coalesce(email, '') as email,
    plan_type,
    daily_limit,
    credits_remaining,
    created_at,
    updated_at
from profiles
where lower(email) = lower($1::text)
limit 1;
`

// QDecrementCredit is the atomic credit charge. The guard in the where
// clause makes concurrent charges against a balance of one succeed once.
const QDecrementCredit = `--sql 5d11b703-5ac5-4e53-82ce-5281d512310d
update profiles
set credits_remaining = credits_remaining - 1,
    updated_at = now()
where id = $1::uuid
  and credits_remaining > 0
returning credits_remaining;
`

const QUpdateProfilePlan = `--sql a2336544-3f2a-470e-b553-fd4b204dae06
update profiles
set plan_type = $2::text,
    credits_remaining = case when $3::int >= 0 then $3::int else credits_remaining end,
    updated_at = now()
where id = $1::uuid
returning id::text, coalesce(email, '') as email, plan_type, daily_limit, credits_remaining, created_at, updated_at;
`
